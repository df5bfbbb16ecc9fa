package model

import "time"

// AIP is one registered archival record
type AIP struct {
	ID         string    `db:"id"`
	TransferID string    `db:"transfer_id"`
	Title      string    `db:"title"`
	RA         *string   `db:"ra"`
	FolderID   *string   `db:"folder_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// File is an original or preservation file of an AIP
type File struct {
	ID          string `db:"id"`
	AIPID       string `db:"aip_id"`
	Name        string `db:"name"`
	StoragePath string `db:"storage_path"`
	Checksum    string `db:"checksum"`
	Format      string `db:"format"`
}
