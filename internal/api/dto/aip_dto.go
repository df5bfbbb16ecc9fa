package dto

type FileDTO struct {
	Name        string `json:"name" binding:"required"`
	StoragePath string `json:"storage_path" binding:"required"`
	Checksum    string `json:"checksum" binding:"required"`
	Format      string `json:"format" binding:"required"`
}

type CreateAIPRequest struct {
	TransferID string    `json:"transfer_id" binding:"required"`
	Title      string    `json:"title"`
	RA         string    `json:"ra"`
	FolderID   string    `json:"folder_id"`
	Originals  []FileDTO `json:"originals" binding:"dive"`
	Preserved  []FileDTO `json:"preserved" binding:"dive"`
}

type CreateAIPResponse struct {
	Message string `json:"message"`
	AIPID   string `json:"aip_id"`
}

type ListAIPsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type AIPDTO struct {
	ID         string `json:"id"`
	TransferID string `json:"transfer_id"`
	Title      string `json:"title"`
	RA         string `json:"ra,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type ListAIPsResponse struct {
	AIPs       []AIPDTO `json:"aips"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type LocationResponse struct {
	Bucket       string `json:"bucket"`
	Path         string `json:"path"`
	Filename     string `json:"filename"`
	Size         *int64 `json:"size,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

type CreateTransferRequest struct {
	TransferID    string `json:"transferId" binding:"required"`
	RA            string `json:"ra"`
	FolderID      string `json:"pastaId"`
	FolderIDAlias string `json:"folderId"`
}

type CreateTransferResponse struct {
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
}
