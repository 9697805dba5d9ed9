package organizer

import (
	"context"
	"fmt"

	"github.com/teemow/propertyinbox/internal/property"
)

// FolderStore is the storage the organizer files attachments into. All
// folders live under one configured parent.
type FolderStore interface {
	FindFolder(ctx context.Context, name string) (*property.Folder, error)
	FindFolderWithSuffix(ctx context.Context, suffix string) (*property.Folder, error)
	CreateFolder(ctx context.Context, name string) (*property.Folder, error)
	ListFiles(ctx context.Context, folderID string) ([]property.StoredFile, error)
	Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (*property.StoredFile, error)
}

// FolderResolver maps a property key onto its folder, creating the folder
// only when no usable one exists.
type FolderResolver struct {
	store       FolderStore
	placeholder string
}

// NewFolderResolver creates a FolderResolver. Keys whose number equals
// placeholder never reuse a folder by number suffix.
func NewFolderResolver(store FolderStore, placeholder string) *FolderResolver {
	if placeholder == "" {
		placeholder = property.DefaultPlaceholder
	}
	return &FolderResolver{store: store, placeholder: placeholder}
}

// Resolve returns the folder for key: the folder named exactly
// key.FolderName(), else an earlier folder of the same property number, else
// a newly created folder. created reports whether a folder was created.
func (r *FolderResolver) Resolve(ctx context.Context, key property.Key) (folder *property.Folder, created bool, err error) {
	name := key.FolderName()

	folder, err = r.store.FindFolder(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if folder != nil {
		return folder, false, nil
	}

	if key.Number != "" && key.Number != r.placeholder {
		folder, err = r.store.FindFolderWithSuffix(ctx, "_"+key.Number)
		if err != nil {
			return nil, false, fmt.Errorf("failed to look up folder for property %s: %w", key.Number, err)
		}
		if folder != nil {
			return folder, false, nil
		}
	}

	folder, err = r.store.CreateFolder(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return folder, true, nil
}
