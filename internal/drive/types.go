package drive

import (
	drive "google.golang.org/api/drive/v3"
)

// FolderMimeType is the MIME type of Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// FileInfo is the subset of Drive file metadata the organizer reads.
// Size is zero for folders and Google Docs.
type FileInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType"`
	Size        int64    `json:"size,omitempty"`
	WebViewLink string   `json:"webViewLink,omitempty"`
	Parents     []string `json:"parents,omitempty"`
}

// IsFolder reports whether the file is a Drive folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// UploadOptions places an uploaded file. An empty MimeType lets Drive
// detect the type.
type UploadOptions struct {
	ParentFolders []string
	MimeType      string
}

func fileInfoFrom(f *drive.File) *FileInfo {
	return &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
	}
}
