package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

const (
	fileFields     = "id, name, mimeType, size, webViewLink, parents"
	listFields     = "nextPageToken, files(" + fileFields + ")"
	listPageSize   = 100
	folderViewBase = "https://drive.google.com/drive/folders/"
)

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Drive client. Authentication is supplied through opts.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}
	return &Client{service: srv}, nil
}

// WithMetrics sets the metrics recorder used for API call metrics.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// Service exposes the underlying Drive service for packages that create
// Drive-hosted documents.
func (c *Client) Service() *drive.Service {
	return c.service
}

func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceDrive, operation)
	start := time.Now()
	err := fn(ctx)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceDrive, operation, instrumentation.StatusFor(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return err
}

// EscapeQuery escapes a value for use inside a single-quoted Drive query
// string literal.
func EscapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func folderQuery(parentID, nameClause string) string {
	return fmt.Sprintf("%s and '%s' in parents and mimeType = '%s' and trashed = false",
		nameClause, EscapeQuery(parentID), FolderMimeType)
}

// ListFiles returns every file matching the Drive query q.
func (c *Client) ListFiles(ctx context.Context, q string) ([]*FileInfo, error) {
	var files []*FileInfo
	pageToken := ""
	for {
		var res *drive.FileList
		err := c.observe(ctx, instrumentation.OperationList, func(ctx context.Context) error {
			call := c.service.Files.List().
				Context(ctx).
				Q(q).
				PageSize(listPageSize).
				Fields(googleapi.Field(listFields))
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			res, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		for _, f := range res.Files {
			files = append(files, fileInfoFrom(f))
		}
		if res.NextPageToken == "" {
			return files, nil
		}
		pageToken = res.NextPageToken
	}
}

// FindFolder returns the first non-trashed folder named exactly name under
// parentID, or nil if there is none.
func (c *Client) FindFolder(ctx context.Context, parentID, name string) (*FileInfo, error) {
	if parentID == "" {
		return nil, fmt.Errorf("parent folder ID is required")
	}
	q := folderQuery(parentID, fmt.Sprintf("name = '%s'", EscapeQuery(name)))
	files, err := c.ListFiles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %q: %w", name, err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// FindFolderWithSuffix returns the first folder under parentID whose name
// ends with suffix, or nil if there is none. Drive's query language only
// supports token matching, so the suffix is verified client side.
func (c *Client) FindFolderWithSuffix(ctx context.Context, parentID, suffix string) (*FileInfo, error) {
	if parentID == "" {
		return nil, fmt.Errorf("parent folder ID is required")
	}
	if suffix == "" {
		return nil, nil
	}
	q := folderQuery(parentID, fmt.Sprintf("name contains '%s'", EscapeQuery(suffix)))
	files, err := c.ListFiles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search folders ending in %q: %w", suffix, err)
	}
	for _, f := range files {
		if strings.HasSuffix(f.Name, suffix) {
			return f, nil
		}
	}
	return nil, nil
}

// CreateFolder creates a new folder in Google Drive
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolders []string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if len(parentFolders) > 0 {
		file.Parents = parentFolders
	}

	var driveFile *drive.File
	err := c.observe(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		driveFile, err = c.service.Files.Create(file).
			Context(ctx).
			Fields(googleapi.Field(fileFields)).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	return fileInfoFrom(driveFile), nil
}

// UploadFile uploads a file to Google Drive
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, options *UploadOptions) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if content == nil {
		return nil, fmt.Errorf("content is required")
	}

	file := &drive.File{Name: name}
	var mediaOpts []googleapi.MediaOption
	if options != nil {
		if len(options.ParentFolders) > 0 {
			file.Parents = options.ParentFolders
		}
		if options.MimeType != "" {
			file.MimeType = options.MimeType
			mediaOpts = append(mediaOpts, googleapi.ContentType(options.MimeType))
		}
	}

	var driveFile *drive.File
	err := c.observe(ctx, instrumentation.OperationUpload, func(ctx context.Context) error {
		var err error
		driveFile, err = c.service.Files.Create(file).
			Context(ctx).
			Media(content, mediaOpts...).
			Fields(googleapi.Field(fileFields)).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file %q: %w", name, err)
	}

	return fileInfoFrom(driveFile), nil
}

// FolderURL returns the browser URL of a folder.
func FolderURL(id string) string {
	return folderViewBase + id
}
