package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/propertyinbox/internal/property"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

// fakeGmail is a minimal in-memory Gmail API backend.
type fakeGmail struct {
	mu       sync.Mutex
	queries  map[string][][]string // query -> pages of message ids
	messages map[string]*gmail.Message
	labels   []*gmail.Label
	modified map[string][]string
	data     map[string]string
}

func newFakeGmail() *fakeGmail {
	return &fakeGmail{
		queries:  map[string][][]string{},
		messages: map[string]*gmail.Message{},
		modified: map[string][]string{},
		data:     map[string]string{},
	}
}

func (f *fakeGmail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/")
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)

	switch {
	case path == "messages" && r.Method == http.MethodGet:
		pages := f.queries[r.URL.Query().Get("q")]
		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			page = int(tok[0] - '0')
		}
		res := &gmail.ListMessagesResponse{}
		if page < len(pages) {
			for _, id := range pages[page] {
				res.Messages = append(res.Messages, &gmail.Message{Id: id})
			}
			if page+1 < len(pages) {
				res.NextPageToken = string(rune('0' + page + 1))
			}
		}
		_ = enc.Encode(res)

	case strings.HasSuffix(path, "/modify"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "messages/"), "/modify")
		var req gmail.ModifyMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.modified[id] = append(f.modified[id], req.AddLabelIds...)
		_ = enc.Encode(&gmail.Message{Id: id})

	case strings.Contains(path, "/attachments/"):
		parts := strings.Split(path, "/")
		attID := parts[len(parts)-1]
		data := f.data[attID]
		_ = enc.Encode(&gmail.MessagePartBody{Data: b64(data), Size: int64(len(data))})

	case strings.HasPrefix(path, "messages/"):
		msg, ok := f.messages[strings.TrimPrefix(path, "messages/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
			return
		}
		_ = enc.Encode(msg)

	case path == "labels" && r.Method == http.MethodGet:
		_ = enc.Encode(&gmail.ListLabelsResponse{Labels: f.labels})

	case path == "labels" && r.Method == http.MethodPost:
		var l gmail.Label
		_ = json.NewDecoder(r.Body).Decode(&l)
		l.Id = "Label_" + string(rune('1'+len(f.labels)))
		f.labels = append(f.labels, &l)
		_ = enc.Encode(&l)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestClient(t *testing.T, f *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func floorplanMessage() *gmail.Message {
	return &gmail.Message{
		Id:       "m1",
		LabelIds: []string{"INBOX"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers:  []*gmail.MessagePartHeader{{Name: "Subject", Value: "【販売図面】渋谷駅 一棟マンション"}},
			Parts: []*gmail.MessagePart{
				{PartId: "0", MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("物件番号：12345 駅：渋谷")}},
				{PartId: "1", MimeType: "application/pdf", Filename: "Hanbaizumen_12345.pdf",
					Body: &gmail.MessagePartBody{AttachmentId: "att-1", Size: 4}},
			},
		},
	}
}

func TestSource_ListCandidates(t *testing.T) {
	f := newFakeGmail()
	f.queries["subject:販売図面 newer_than:2h has:attachment -label:processed"] = [][]string{{"m1", "m2"}, {"m3"}}
	f.queries["subject:住宅地図・路線価図 newer_than:2h has:attachment -label:processed"] = [][]string{{"m3", "m4"}}

	src := NewSource(newTestClient(t, f), "processed", nil)
	refs, err := src.ListCandidates(context.Background(), 2*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, []property.MessageRef{
		{ID: "m1", Kind: property.KindFloorplan},
		{ID: "m2", Kind: property.KindFloorplan},
		{ID: "m3", Kind: property.KindFloorplan},
		{ID: "m4", Kind: property.KindMap},
	}, refs)
}

func TestSource_ListCandidatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = NewSource(client, "processed", nil).ListCandidates(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestSource_FetchDownloadMark(t *testing.T) {
	f := newFakeGmail()
	f.messages["m1"] = floorplanMessage()
	f.data["att-1"] = "%PDF"

	src := NewSource(newTestClient(t, f), "processed", nil)
	ctx := context.Background()

	msg, err := src.Fetch(ctx, property.MessageRef{ID: "m1", Kind: property.KindFloorplan})
	require.NoError(t, err)
	assert.Equal(t, "【販売図面】渋谷駅 一棟マンション", msg.Subject)
	assert.Equal(t, "物件番号：12345 駅：渋谷", msg.Body)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "Hanbaizumen_12345.pdf", msg.Attachments[0].Filename)
	assert.False(t, msg.HasLabel("processed"))

	data, err := src.Download(ctx, msg.Attachments[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	require.NoError(t, src.MarkProcessed(ctx, "m1"))
	f.mu.Lock()
	require.Len(t, f.labels, 1, "label should be created exactly once")
	assert.Equal(t, []string{f.labels[0].Id}, f.modified["m1"])
	f.mu.Unlock()

	// Label names are resolved on later fetches.
	f.mu.Lock()
	f.messages["m1"].LabelIds = append(f.messages["m1"].LabelIds, f.labels[0].Id)
	f.mu.Unlock()
	msg, err = src.Fetch(ctx, property.MessageRef{ID: "m1", Kind: property.KindFloorplan})
	require.NoError(t, err)
	assert.True(t, msg.HasLabel("processed"))
}

func TestSource_DownloadInlineAttachment(t *testing.T) {
	f := newFakeGmail()
	msg := floorplanMessage()
	msg.Payload.Parts = append(msg.Payload.Parts, &gmail.MessagePart{
		PartId:   "2",
		MimeType: "application/pdf",
		Filename: "Jutakuchizu_12345.pdf",
		Body:     &gmail.MessagePartBody{Data: b64("%PDF-inline")},
	})
	f.messages["m1"] = msg

	src := NewSource(newTestClient(t, f), "processed", nil)
	ctx := context.Background()

	got, err := src.Fetch(ctx, property.MessageRef{ID: "m1", Kind: property.KindMap})
	require.NoError(t, err)
	require.Len(t, got.Attachments, 2)

	inline := got.Attachments[1]
	assert.Equal(t, "Jutakuchizu_12345.pdf", inline.Filename)
	assert.Empty(t, inline.ID)

	data, err := src.Download(ctx, inline)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-inline", string(data))
}

func TestSource_ConcurrentFetchResolvesLabelOnce(t *testing.T) {
	f := newFakeGmail()
	msg := floorplanMessage()
	msg.LabelIds = append(msg.LabelIds, "Label_1")
	f.messages["m1"] = msg

	src := NewSource(newTestClient(t, f), "processed", nil)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	processed := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := src.Fetch(ctx, property.MessageRef{ID: "m1", Kind: property.KindFloorplan})
			errs[i] = err
			if err == nil {
				processed[i] = m.HasLabel("processed")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, processed[i], "label id should resolve to its name")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.labels, 1, "label should be created exactly once")
}

func TestSource_EnsureLabelReusesExisting(t *testing.T) {
	f := newFakeGmail()
	f.labels = []*gmail.Label{{Id: "Label_9", Name: "processed"}}

	src := NewSource(newTestClient(t, f), "processed", nil)
	require.NoError(t, src.MarkProcessed(context.Background(), "m1"))

	assert.Len(t, f.labels, 1)
	assert.Equal(t, []string{"Label_9"}, f.modified["m1"])
}

func TestSource_FetchNotFound(t *testing.T) {
	src := NewSource(newTestClient(t, newFakeGmail()), "processed", nil)
	_, err := src.Fetch(context.Background(), property.MessageRef{ID: "missing"})
	assert.Error(t, err)
}

func TestSource_QueriesUseSubjectOverrides(t *testing.T) {
	src := NewSource(nil, "done label", map[property.MailKind]string{property.KindMap: "住宅地図"})
	queries := src.Queries(24 * time.Hour)
	require.Len(t, queries, 2)
	assert.Equal(t, "subject:販売図面 newer_than:1d has:attachment -label:done-label", queries[0].Query)
	assert.Equal(t, "subject:住宅地図 newer_than:1d has:attachment -label:done-label", queries[1].Query)
}
