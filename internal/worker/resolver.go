package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// FolderReader looks folders up by id
type FolderReader interface {
	GetFolder(ctx context.Context, id string) (*domain.Folder, error)
}

// Resolution is the outcome of ResolvePrefix. FolderID is the job's folder
// id when that folder exists, and empty otherwise.
type Resolution struct {
	Prefix   string
	FolderID string
	Warnings []string
}

// ResolvePrefix builds the storage prefix of a job. With a folder id it walks
// the hierarchy up to the root and joins the names root first; a missing
// ancestor truncates the walk and is reported as a warning. Without a folder
// id the ra is used verbatim, and with neither the prefix is empty.
func ResolvePrefix(ctx context.Context, folders FolderReader, folderID, ra string) Resolution {
	if folderID == "" {
		return Resolution{Prefix: ra}
	}

	var (
		names    []string
		warnings  []string
		leafFound bool
		visited   = make(map[string]struct{})
	)

	current := folderID
	for {
		if _, seen := visited[current]; seen {
			warnings = append(warnings, fmt.Sprintf("folder cycle detected at %s", current))
			break
		}
		visited[current] = struct{}{}

		folder, err := folders.GetFolder(ctx, current)
		if err != nil {
			if errors.Is(err, domain.ErrFolderNotFound) {
				warnings = append(warnings, fmt.Sprintf("folder %s not found", current))
			} else {
				warnings = append(warnings, fmt.Sprintf("folder %s lookup failed: %v", current, err))
			}
			break
		}

		if current == folderID {
			leafFound = true
		}
		names = append(names, folder.Name)
		if folder.ParentID == nil || *folder.ParentID == "" {
			break
		}
		current = *folder.ParentID
	}

	// collected leaf first
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	res := Resolution{Prefix: strings.Join(names, "/"), Warnings: warnings}
	if leafFound {
		res.FolderID = folderID
	}
	return res
}
