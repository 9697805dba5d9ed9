package organizer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/propertyinbox/internal/instrumentation"
)

// PersistResult tags what happened to one attachment.
type PersistResult string

const (
	PersistSaved     PersistResult = "saved"
	PersistDuplicate PersistResult = "duplicate"
)

// Inventory is the set of files already present in a folder, keyed by name
// and size.
type Inventory struct {
	folderID string
	files    map[fileKey]struct{}
}

type fileKey struct {
	name string
	size int64
}

// Has reports whether a file with name and size exists.
func (inv *Inventory) Has(name string, size int64) bool {
	_, ok := inv.files[fileKey{name, size}]
	return ok
}

func (inv *Inventory) add(name string, size int64) {
	inv.files[fileKey{name, size}] = struct{}{}
}

// Persister uploads attachments into folders, skipping files whose name and
// size already exist there. Content is not compared.
type Persister struct {
	store FolderStore
}

// NewPersister creates a Persister.
func NewPersister(store FolderStore) *Persister {
	return &Persister{store: store}
}

// Inventory lists the files of folderID.
func (p *Persister) Inventory(ctx context.Context, folderID string) (*Inventory, error) {
	files, err := p.store.ListFiles(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	inv := &Inventory{folderID: folderID, files: make(map[fileKey]struct{}, len(files))}
	for _, f := range files {
		inv.add(f.Name, f.Size)
	}
	return inv, nil
}

// Persist uploads data as name unless inv already holds a file with the same
// name and size. Uploaded files are added to inv.
func (p *Persister) Persist(ctx context.Context, inv *Inventory, name, mimeType string, data []byte) (PersistResult, error) {
	size := int64(len(data))
	span := trace.SpanFromContext(ctx)
	if inv.Has(name, size) {
		instrumentation.AddSpanEvent(span, "attachment.duplicate", attribute.String("file.name", name))
		return PersistDuplicate, nil
	}
	if _, err := p.store.Upload(ctx, inv.folderID, name, mimeType, data); err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", name, err)
	}
	inv.add(name, size)
	instrumentation.AddSpanEvent(span, "attachment.saved",
		attribute.String("file.name", name),
		attribute.Int64("file.size", size),
	)
	return PersistSaved, nil
}
