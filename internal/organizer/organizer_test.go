package organizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/propertyinbox/internal/docs"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/property"
	"github.com/teemow/propertyinbox/internal/report"
)

const processedLabel = "processed"

type memSource struct {
	refs     []property.MessageRef
	messages map[string]*property.Message
	content  map[string][]byte

	listErr     error
	fetchErr    map[string]error
	downloadErr map[string]error
	markErr     map[string]error
	panicOn     string

	marked []string
}

func newMemSource() *memSource {
	return &memSource{
		messages:    map[string]*property.Message{},
		content:     map[string][]byte{},
		fetchErr:    map[string]error{},
		downloadErr: map[string]error{},
		markErr:     map[string]error{},
	}
}

func (s *memSource) add(msg *property.Message, content map[string]string) {
	s.refs = append(s.refs, property.MessageRef{ID: msg.ID, Kind: msg.Kind})
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		a.MessageID = msg.ID
		if a.ID == "" {
			a.ID = fmt.Sprintf("%s-att-%d", msg.ID, i)
		}
		if c, ok := content[a.Filename]; ok {
			s.content[a.ID] = []byte(c)
			a.Size = int64(len(c))
		}
	}
	s.messages[msg.ID] = msg
}

func (s *memSource) ListCandidates(context.Context, time.Duration) ([]property.MessageRef, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.refs, nil
}

func (s *memSource) Fetch(_ context.Context, ref property.MessageRef) (*property.Message, error) {
	if ref.ID == s.panicOn {
		panic("corrupt message")
	}
	if err := s.fetchErr[ref.ID]; err != nil {
		return nil, err
	}
	msg, ok := s.messages[ref.ID]
	if !ok {
		return nil, errors.New("not found")
	}
	return msg, nil
}

func (s *memSource) Download(_ context.Context, att property.Attachment) ([]byte, error) {
	if err := s.downloadErr[att.ID]; err != nil {
		return nil, err
	}
	return s.content[att.ID], nil
}

func (s *memSource) MarkProcessed(_ context.Context, id string) error {
	if err := s.markErr[id]; err != nil {
		return err
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *memSource) ProcessedLabel() string {
	return processedLabel
}

type memStore struct {
	folders []property.Folder
	files   map[string][]property.StoredFile

	createCalls int
	uploads     []string
	listErr     error
	uploadErr   error
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]property.StoredFile{}}
}

func (m *memStore) FindFolder(_ context.Context, name string) (*property.Folder, error) {
	for i := range m.folders {
		if m.folders[i].Name == name {
			f := m.folders[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindFolderWithSuffix(_ context.Context, suffix string) (*property.Folder, error) {
	for i := range m.folders {
		if strings.HasSuffix(m.folders[i].Name, suffix) {
			f := m.folders[i]
			return &f, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateFolder(_ context.Context, name string) (*property.Folder, error) {
	m.createCalls++
	f := property.Folder{ID: fmt.Sprintf("folder-%d", len(m.folders)+1), Name: name}
	m.folders = append(m.folders, f)
	return &f, nil
}

func (m *memStore) ListFiles(_ context.Context, folderID string) ([]property.StoredFile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.files[folderID], nil
}

func (m *memStore) Upload(_ context.Context, folderID, name, _ string, data []byte) (*property.StoredFile, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	f := property.StoredFile{ID: fmt.Sprintf("file-%d", len(m.uploads)+1), Name: name, Size: int64(len(data))}
	m.files[folderID] = append(m.files[folderID], f)
	m.uploads = append(m.uploads, name)
	return &f, nil
}

type fakeReports struct {
	requests []report.Request
	results  []report.Result
}

func (f *fakeReports) Run(_ context.Context, req report.Request) report.Result {
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return report.Result{Status: report.StatusFull, Document: &docs.Document{ID: "doc", URL: "https://docs.example/doc"}}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

func fixedNow() time.Time {
	// already June 1st in Tokyo
	return time.Date(2024, 5, 31, 16, 30, 0, 0, time.UTC)
}

func newOrganizer(src *memSource, store *memStore, reports ReportRunner) *Organizer {
	return New(Deps{Source: src, Store: store, Reports: reports}, Config{
		Reports: reports != nil,
		Now:     fixedNow,
	})
}

func floorplanMail(id string) *property.Message {
	return &property.Message{
		ID:      id,
		Kind:    property.KindFloorplan,
		Subject: "【販売図面】新着物件 物件番号：12345",
		Body:    "駅：渋谷\n価格：6,100万円",
		Attachments: []property.Attachment{
			{Filename: "Hanbaizumen_12345.pdf", MimeType: "application/pdf"},
			{Filename: "rentroll.xlsx", MimeType: "application/vnd.ms-excel"},
		},
	}
}

var floorplanContent = map[string]string{
	"Hanbaizumen_12345.pdf": "%PDF-floorplan",
	"rentroll.xlsx":         "rent roll",
}

func TestOrganizer_FilesMessageIntoFolder(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	store := newMemStore()

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, summary.Status)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 1, summary.Organized)
	assert.Equal(t, 2, summary.AttachmentsSaved)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Failures)

	require.Len(t, store.folders, 1)
	assert.Equal(t, "20240601_渋谷_12345", store.folders[0].Name)
	require.Len(t, summary.Folders, 1)
	assert.True(t, summary.Folders[0].Created)
	assert.ElementsMatch(t, []string{"Hanbaizumen_12345.pdf", "rentroll.xlsx"}, store.uploads)
	assert.Equal(t, []string{"m1"}, src.marked)
}

func TestOrganizer_PlaceholderFolder(t *testing.T) {
	src := newMemSource()
	src.add(&property.Message{
		ID:          "m1",
		Kind:        property.KindFloorplan,
		Subject:     "販売図面",
		Body:        "添付をご確認ください",
		Attachments: []property.Attachment{{Filename: "scan.jpg", MimeType: "image/jpeg"}},
	}, map[string]string{"scan.jpg": "jpeg"})
	store := newMemStore()

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerCLI)
	require.NoError(t, err)

	require.Len(t, store.folders, 1)
	assert.Equal(t, "20240601_unknown_unknown", store.folders[0].Name)
	assert.Equal(t, 1, summary.AttachmentsSaved)
	assert.Equal(t, 1, summary.Organized)
}

func TestOrganizer_ReprocessingSkipsDuplicates(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	store := newMemStore()
	o := newOrganizer(src, store, nil)

	first, err := o.Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, 2, first.AttachmentsSaved)

	second, err := o.Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 0, second.AttachmentsSaved)
	assert.Equal(t, 2, second.SkippedDuplicate)
	assert.Len(t, store.uploads, 2)
	assert.Len(t, store.folders, 1)
	assert.Equal(t, 1, store.createCalls)
}

func TestOrganizer_OneBadMessageAmongMany(t *testing.T) {
	src := newMemSource()
	for i := 1; i <= 4; i++ {
		src.add(floorplanMail(fmt.Sprintf("m%d", i)), floorplanContent)
	}
	src.fetchErr["m3"] = errors.New("googleapi: Error 500")
	store := newMemStore()

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerSchedule)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Matched)
	assert.Equal(t, 3, summary.Organized)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "m3", summary.Failures[0].MessageID)
	assert.Contains(t, summary.Failures[0].Error, "failed to fetch message")
	assert.Equal(t, []string{"m1", "m2", "m4"}, src.marked)
}

func TestOrganizer_PanickingMessageIsRecorded(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	src.add(floorplanMail("m2"), floorplanContent)
	src.panicOn = "m1"

	summary, err := newOrganizer(src, newMemStore(), nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Organized)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "m1", summary.Failures[0].MessageID)
	assert.Contains(t, summary.Failures[0].Error, "corrupt message")
}

func TestOrganizer_EnumerationFailure(t *testing.T) {
	src := newMemSource()
	src.listErr = errors.New("invalid_grant")

	summary, err := newOrganizer(src, newMemStore(), nil).Run(context.Background(), TriggerHTTP)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnumerate)
	require.NotNil(t, summary)
	assert.Equal(t, StatusError, summary.Status)
	assert.Contains(t, summary.Error, "invalid_grant")
	assert.Equal(t, 0, summary.Matched)
}

func TestOrganizer_UnreadableAttachmentIsSkipped(t *testing.T) {
	src := newMemSource()
	msg := floorplanMail("m1")
	src.add(msg, floorplanContent)
	src.downloadErr[msg.Attachments[1].ID] = errors.New("attachment gone")
	store := newMemStore()

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Organized)
	assert.Equal(t, 1, summary.AttachmentsSaved)
	assert.Equal(t, 1, summary.MalformedAttachments)
	assert.Equal(t, []string{"Hanbaizumen_12345.pdf"}, store.uploads)
}

func TestOrganizer_UploadFailureFailsMessage(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	store := newMemStore()
	store.uploadErr = errors.New("storage quota exceeded")

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Organized)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, src.marked)
}

func TestOrganizer_LabelFailureFailsMessage(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	src.markErr["m1"] = errors.New("insufficient permission")

	summary, err := newOrganizer(src, newMemStore(), nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Failures[0].Error, "failed to apply processed label")
}

func TestOrganizer_AlreadyLabelledMessage(t *testing.T) {
	src := newMemSource()
	msg := floorplanMail("m1")
	msg.Labels = []string{"INBOX", processedLabel}
	src.add(msg, floorplanContent)
	store := newMemStore()

	summary, err := newOrganizer(src, store, nil).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.AlreadyProcessed)
	assert.Equal(t, 0, summary.Organized)
	assert.Empty(t, store.folders)
	assert.Empty(t, src.marked)
}

func TestOrganizer_ReportsForNewFloorplans(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	store := newMemStore()
	reports := &fakeReports{}
	o := newOrganizer(src, store, reports)

	summary, err := o.Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	require.Len(t, reports.requests, 1)
	req := reports.requests[0]
	assert.Equal(t, "folder-1", req.FolderID)
	assert.Equal(t, "12345", req.Number)
	assert.Equal(t, "渋谷", req.Station)
	assert.Equal(t, "Hanbaizumen_12345.pdf", req.Attachment.Filename)
	assert.Equal(t, []byte("%PDF-floorplan"), req.Data)

	assert.Equal(t, 1, summary.ReportGenerated)
	require.Len(t, summary.Reports, 1)
	assert.Equal(t, report.StatusFull, summary.Reports[0].Status)
	assert.Equal(t, "https://docs.example/doc", summary.Reports[0].DocumentURL)

	// duplicates are not reported on again
	_, err = o.Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)
	assert.Len(t, reports.requests, 1)
}

func TestOrganizer_ReportFailureDoesNotBlockLabel(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	reports := &fakeReports{results: []report.Result{{Status: report.StatusNoReport, Reason: "address not found"}}}

	summary, err := newOrganizer(src, newMemStore(), reports).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Organized)
	assert.Equal(t, 0, summary.ReportGenerated)
	require.Len(t, summary.Reports, 1)
	assert.Equal(t, "address not found", summary.Reports[0].Reason)
	assert.Equal(t, []string{"m1"}, src.marked)
}

func TestOrganizer_ReportTriesNextFloorplan(t *testing.T) {
	src := newMemSource()
	src.add(&property.Message{
		ID:      "m1",
		Kind:    property.KindFloorplan,
		Subject: "販売図面 物件番号：777",
		Attachments: []property.Attachment{
			{Filename: "photo.jpg", MimeType: "image/jpeg"},
			{Filename: "販売図面.pdf", MimeType: "application/pdf"},
		},
	}, map[string]string{"photo.jpg": "jpg", "販売図面.pdf": "%PDF"})
	reports := &fakeReports{results: []report.Result{
		{Status: report.StatusNoReport, Reason: "address not found"},
		{Status: report.StatusPartial},
	}}

	summary, err := newOrganizer(src, newMemStore(), reports).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Len(t, reports.requests, 2)
	assert.Equal(t, 1, summary.ReportGenerated)
	assert.Len(t, summary.Reports, 2)
}

func TestOrganizer_MapMailDoesNotReport(t *testing.T) {
	src := newMemSource()
	src.add(&property.Message{
		ID:          "m1",
		Kind:        property.KindMap,
		Subject:     "住宅地図・路線価図 池袋駅",
		Attachments: []property.Attachment{{Filename: "map.pdf", MimeType: "application/pdf"}},
	}, map[string]string{"map.pdf": "%PDF"})
	reports := &fakeReports{}

	summary, err := newOrganizer(src, newMemStore(), reports).Run(context.Background(), TriggerHTTP)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Organized)
	assert.Empty(t, reports.requests)
}

func TestOrganizer_CancelledContextFailsRemaining(t *testing.T) {
	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newOrganizer(src, newMemStore(), nil).Run(ctx, TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, context.Canceled.Error(), summary.Failures[0].Error)
}

func TestOrganizer_AuditRecord(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true})

	src := newMemSource()
	src.add(floorplanMail("m1"), floorplanContent)
	o := New(Deps{Source: src, Store: newMemStore(), Audit: audit}, Config{Now: fixedNow})

	summary, err := o.Run(context.Background(), TriggerSchedule)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run_completed", record["msg"])
	assert.Equal(t, summary.RunID, record["run_id"])
	assert.Equal(t, "schedule", record["trigger"])
	assert.EqualValues(t, 1, record["organized"])
}

func TestRunSummary_JSON(t *testing.T) {
	summary := &RunSummary{
		RunID:    "r1",
		Trigger:  TriggerHTTP,
		Status:   StatusOK,
		Matched:  2,
		Failed:   1,
		Failures: []Failure{{MessageID: "m2", Error: "boom"}},
	}
	b, err := json.Marshal(summary)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.EqualValues(t, 2, got["matched"])
	assert.EqualValues(t, 0, got["skipped_duplicate"])
	assert.Equal(t, []any{map[string]any{"message_id": "m2", "error": "boom"}}, got["failures"])
}
