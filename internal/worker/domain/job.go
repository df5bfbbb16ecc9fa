package domain

import (
	"encoding/json"
	"strings"
)

// Job is a deposit request read from the queue
type Job struct {
	TransferID string `json:"transferId"`
	RA         string `json:"ra,omitempty"`
	FolderID   string `json:"pastaId,omitempty"`
}

// jobMessage accepts both folder id spellings seen on the queue
type jobMessage struct {
	TransferID string `json:"transferId"`
	RA         string `json:"ra"`
	PastaID    string `json:"pastaId"`
	FolderID   string `json:"folderId"`
}

// DecodeJob parses a queue message. Messages that are not JSON objects or
// carry no transferId are rejected with ErrInvalidMessage.
func DecodeJob(body []byte) (*Job, error) {
	var msg jobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &MessageError{Reason: "malformed JSON", Err: err}
	}

	transferID := strings.TrimSpace(msg.TransferID)
	if transferID == "" {
		return nil, &MessageError{Reason: "missing transferId"}
	}

	folderID := msg.PastaID
	if folderID == "" {
		folderID = msg.FolderID
	}

	return &Job{
		TransferID: transferID,
		RA:         strings.TrimSpace(msg.RA),
		FolderID:   strings.TrimSpace(folderID),
	}, nil
}

// Folder is one node of the folder hierarchy
type Folder struct {
	ID       string  `db:"id" json:"id"`
	Name     string  `db:"name" json:"name"`
	ParentID *string `db:"parent_id" json:"parent_id,omitempty"`
}

// FileArtifact describes one stored object
type FileArtifact struct {
	Name        string `json:"name"`
	StoragePath string `json:"storage_path"`
	Checksum    string `json:"checksum"`
	Format      string `json:"format"`
}

// ArchivalRecord is the registration payload of a finished job
type ArchivalRecord struct {
	TransferID string         `json:"transfer_id"`
	Title      string         `json:"title"`
	RA         string         `json:"ra,omitempty"`
	FolderID   string         `json:"folder_id,omitempty"`
	Originals  []FileArtifact `json:"originals"`
	Preserved  []FileArtifact `json:"preserved"`
}

// JobOutcome is the notification sent once per job
type JobOutcome struct {
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}
