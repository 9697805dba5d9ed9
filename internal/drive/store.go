package drive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/teemow/propertyinbox/internal/property"
)

// Store exposes the Drive client as a folder store rooted at one parent
// folder.
type Store struct {
	client   *Client
	parentID string
}

// NewStore creates a Store that keeps property folders under parentID.
func NewStore(client *Client, parentID string) *Store {
	return &Store{client: client, parentID: parentID}
}

// FindFolder returns the folder named exactly name, or nil.
func (s *Store) FindFolder(ctx context.Context, name string) (*property.Folder, error) {
	f, err := s.client.FindFolder(ctx, s.parentID, name)
	if err != nil || f == nil {
		return nil, err
	}
	return toFolder(f), nil
}

// FindFolderWithSuffix returns the first folder whose name ends in suffix,
// or nil.
func (s *Store) FindFolderWithSuffix(ctx context.Context, suffix string) (*property.Folder, error) {
	f, err := s.client.FindFolderWithSuffix(ctx, s.parentID, suffix)
	if err != nil || f == nil {
		return nil, err
	}
	return toFolder(f), nil
}

// CreateFolder creates a folder under the parent folder.
func (s *Store) CreateFolder(ctx context.Context, name string) (*property.Folder, error) {
	f, err := s.client.CreateFolder(ctx, name, []string{s.parentID})
	if err != nil {
		return nil, err
	}
	return toFolder(f), nil
}

// ListFiles returns the files directly inside folderID. Sub-folders are
// skipped.
func (s *Store) ListFiles(ctx context.Context, folderID string) ([]property.StoredFile, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", EscapeQuery(folderID))
	files, err := s.client.ListFiles(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]property.StoredFile, 0, len(files))
	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		out = append(out, property.StoredFile{ID: f.ID, Name: f.Name, Size: f.Size})
	}
	return out, nil
}

// Upload stores data as name inside folderID.
func (s *Store) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (*property.StoredFile, error) {
	f, err := s.client.UploadFile(ctx, name, bytes.NewReader(data), &UploadOptions{
		ParentFolders: []string{folderID},
		MimeType:      mimeType,
	})
	if err != nil {
		return nil, err
	}
	size := f.Size
	if size == 0 {
		size = int64(len(data))
	}
	return &property.StoredFile{ID: f.ID, Name: f.Name, Size: size}, nil
}

func toFolder(f *FileInfo) *property.Folder {
	url := f.WebViewLink
	if url == "" {
		url = FolderURL(f.ID)
	}
	return &property.Folder{ID: f.ID, Name: f.Name, URL: url}
}
