package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/propertyinbox/internal/address"
	"github.com/teemow/propertyinbox/internal/docs"
	"github.com/teemow/propertyinbox/internal/geocode"
	"github.com/teemow/propertyinbox/internal/instrumentation"
	"github.com/teemow/propertyinbox/internal/listing"
	"github.com/teemow/propertyinbox/internal/logging"
	"github.com/teemow/propertyinbox/internal/property"
	"github.com/teemow/propertyinbox/internal/research"
	"github.com/teemow/propertyinbox/internal/simulation"
)

// Status is the terminal outcome of one pipeline run.
type Status string

const (
	StatusNoReport Status = "no-report"
	StatusPartial  Status = "partial-report"
	StatusFull     Status = "full-report"
)

// Stage names used for spans, metrics and Result.Stages.
const (
	StageText       = "text"
	StageAddress    = "address"
	StageGeocode    = "geocode"
	StageDetails    = "details"
	StageMarket     = "market"
	StageArea       = "area"
	StageSimulation = "simulation"
	StageWorkbook   = "workbook"
	StageDocument   = "document"
)

// TextExtractor turns attachment content into text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}

// AddressResolver finds a postal address in text. It never fails.
type AddressResolver interface {
	Resolve(ctx context.Context, text string) address.Result
}

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geocode.Result, error)
}

// Researcher produces market and area research for a property.
type Researcher interface {
	Research(ctx context.Context, s research.Subject) research.Findings
	HasArea() bool
}

// DetailsExtractor reads structured property data from text.
type DetailsExtractor interface {
	Extract(ctx context.Context, text string) (*listing.Details, error)
}

// DocumentWriter creates the report document inside a folder.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, folderID, title string, sections []docs.Section) (*docs.Document, error)
}

// Uploader stores a file inside a folder.
type Uploader interface {
	Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (*property.StoredFile, error)
}

// Deps are the collaborators of a Pipeline. Text, Address and Documents are
// required; a nil optional collaborator skips its stage.
type Deps struct {
	Text      TextExtractor
	Address   AddressResolver
	Geocoder  Geocoder
	Research  Researcher
	Details   DetailsExtractor
	Documents DocumentWriter
	Uploader  Uploader
}

// Options tune a Pipeline.
type Options struct {
	// Simulation enables the investment simulation and its workbook
	Simulation bool

	// Location is the zone of the generated-at timestamp (default UTC)
	Location *time.Location

	// Now overrides the clock
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Request is one floorplan attachment to report on.
type Request struct {
	FolderID   string
	Number     string
	Station    string
	Attachment property.Attachment
	Data       []byte
}

// Result is the terminal outcome of a run plus every stage outcome.
type Result struct {
	Status   Status               `json:"status"`
	Reason   string               `json:"reason,omitempty"`
	Address  address.Result       `json:"address"`
	Document *docs.Document       `json:"document,omitempty"`
	Workbook *property.StoredFile `json:"workbook,omitempty"`
	Stages   []Stage              `json:"stages"`
}

// Generated reports whether a report document was written.
func (r Result) Generated() bool {
	return r.Status == StatusPartial || r.Status == StatusFull
}

// Pipeline turns a floorplan attachment into a report document.
type Pipeline struct {
	deps       Deps
	simulation bool
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewPipeline creates a Pipeline.
func NewPipeline(deps Deps, opts Options) *Pipeline {
	p := &Pipeline{
		deps:       deps,
		simulation: opts.Simulation,
		location:   opts.Location,
		now:        opts.Now,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Run executes the pipeline for req. It never returns an error and never
// panics: every failure ends in one of the three terminal statuses.
func (p *Pipeline) Run(ctx context.Context, req Request) (res Result) {
	res.Address = address.Result{Source: address.SourceNone}
	logger := logging.WithOperation(p.logger, "report").With(
		slog.String("folder_id", req.FolderID),
		slog.String("attachment", req.Attachment.Filename))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("report pipeline panicked", slog.Any("panic", r))
			res.Status = StatusNoReport
			res.Document = nil
			res.Reason = fmt.Sprintf("report pipeline panicked: %v", r)
		}
	}()

	if p.deps.Text == nil || p.deps.Address == nil || p.deps.Documents == nil {
		res.Status = StatusNoReport
		res.Reason = "report pipeline not configured"
		return res
	}

	text := runStage(ctx, p, StageText, func(ctx context.Context) Outcome[string] {
		t, err := p.deps.Text.ExtractText(ctx, req.Attachment.Filename, req.Attachment.MimeType, req.Data)
		if err != nil {
			return Failed[string](err)
		}
		return Ok(t)
	})
	res.Stages = append(res.Stages, text.Stage(StageText))
	if !text.IsOk() {
		res.Status = StatusNoReport
		res.Reason = "text extraction failed: " + text.Reason
		return res
	}

	addr := runStage(ctx, p, StageAddress, func(ctx context.Context) Outcome[address.Result] {
		r := p.deps.Address.Resolve(ctx, text.Value)
		if !r.Found() {
			return Skipped[address.Result]("address not found")
		}
		return Ok(r)
	})
	res.Stages = append(res.Stages, addr.Stage(StageAddress))
	if !addr.IsOk() {
		res.Status = StatusNoReport
		res.Reason = addr.Reason
		return res
	}
	res.Address = addr.Value

	loc := runStage(ctx, p, StageGeocode, func(ctx context.Context) Outcome[geocode.Result] {
		if p.deps.Geocoder == nil {
			return Skipped[geocode.Result]("geocoding not configured")
		}
		g, err := p.deps.Geocoder.Geocode(ctx, addr.Value.Address)
		if err != nil {
			return Failed[geocode.Result](err)
		}
		return Ok(g)
	})
	res.Stages = append(res.Stages, loc.Stage(StageGeocode))

	details := runStage(ctx, p, StageDetails, func(ctx context.Context) Outcome[*listing.Details] {
		if p.deps.Details == nil {
			return Skipped[*listing.Details]("property data extraction not configured")
		}
		d, err := p.deps.Details.Extract(ctx, text.Value)
		if err != nil {
			return Skipped[*listing.Details]("property data unavailable: " + err.Error())
		}
		return Ok(d)
	})
	res.Stages = append(res.Stages, details.Stage(StageDetails))

	subject := research.Subject{
		Address: addr.Value.Address,
		Station: req.Station,
		Number:  req.Number,
	}
	if loc.IsOk() {
		subject.Location = &loc.Value
	}
	if details.IsOk() {
		subject.Details = details.Value
	}
	market, area := p.research(ctx, subject)
	res.Stages = append(res.Stages, market.Stage(StageMarket), area.Stage(StageArea))

	sim := runStage(ctx, p, StageSimulation, func(ctx context.Context) Outcome[*simulation.Result] {
		switch {
		case !p.simulation:
			return Skipped[*simulation.Result]("simulation disabled")
		case !details.IsOk() || !details.Value.Simulatable():
			return Skipped[*simulation.Result]("price or rent unavailable")
		}
		r, err := simulation.Run(details.Value.SimulationInput())
		if err != nil {
			return Failed[*simulation.Result](err)
		}
		return Ok(r)
	})
	res.Stages = append(res.Stages, sim.Stage(StageSimulation))

	now := p.now().In(p.location)
	workbook := runStage(ctx, p, StageWorkbook, func(ctx context.Context) Outcome[*property.StoredFile] {
		if !sim.IsOk() {
			return Skipped[*property.StoredFile]("no simulation")
		}
		if p.deps.Uploader == nil {
			return Skipped[*property.StoredFile]("workbook upload not configured")
		}
		data, err := simulation.WorkbookBytes(sim.Value, req.Number, req.Station, now)
		if err != nil {
			return Failed[*property.StoredFile](err)
		}
		f, err := p.deps.Uploader.Upload(ctx, req.FolderID, simulation.FileName(req.Number, req.Station), simulation.XLSXMimeType, data)
		if err != nil {
			return Failed[*property.StoredFile](err)
		}
		return Ok(f)
	})
	res.Stages = append(res.Stages, workbook.Stage(StageWorkbook))
	if workbook.IsOk() {
		res.Workbook = workbook.Value
	}

	content := Content{
		Number:     req.Number,
		Station:    req.Station,
		Address:    addr.Value,
		Location:   loc,
		Details:    details,
		Market:     market,
		Area:       area,
		Simulation: sim,
		Generated:  now,
	}
	doc := runStage(ctx, p, StageDocument, func(ctx context.Context) Outcome[*docs.Document] {
		d, err := p.deps.Documents.CreateDocument(ctx, req.FolderID, Title(req.Number, req.Station), Compose(content))
		if err != nil {
			return Failed[*docs.Document](err)
		}
		return Ok(d)
	})
	res.Stages = append(res.Stages, doc.Stage(StageDocument))
	if !doc.IsOk() {
		res.Status = StatusNoReport
		res.Reason = "document creation failed: " + doc.Reason
		return res
	}
	res.Document = doc.Value

	res.Status = StatusPartial
	if loc.IsOk() && market.IsOk() {
		res.Status = StatusFull
	}
	logger.Info("report generated",
		logging.Status(string(res.Status)),
		slog.String("document_id", doc.Value.ID))
	return res
}

// research runs market and area research as one stage and splits the
// findings into two outcomes.
func (p *Pipeline) research(ctx context.Context, s research.Subject) (Outcome[string], Outcome[string]) {
	if p.deps.Research == nil {
		market := Skipped[string]("market research not configured")
		area := Skipped[string]("area research not configured")
		p.metrics.RecordStage(ctx, StageMarket, market.Kind.metricStatus(), 0)
		p.metrics.RecordStage(ctx, StageArea, area.Kind.metricStatus(), 0)
		return market, area
	}

	ctx, span := instrumentation.StartStageSpan(ctx, "research")
	start := time.Now()
	f := p.deps.Research.Research(ctx, s)
	elapsed := time.Since(start)

	var market, area Outcome[string]
	switch {
	case f.MarketErr != nil:
		market = Failed[string](f.MarketErr)
	case f.Market == "":
		market = Failed[string](errors.New("empty market research"))
	default:
		market = Ok(f.Market)
	}
	switch {
	case !p.deps.Research.HasArea():
		area = Skipped[string]("area research not configured")
	case f.AreaErr != nil:
		area = Failed[string](f.AreaErr)
	case f.Area == "":
		area = Failed[string](errors.New("empty area research"))
	default:
		area = Ok(f.Area)
	}
	instrumentation.EndSpan(span, market.Err)

	for name, o := range map[string]Outcome[string]{StageMarket: market, StageArea: area} {
		p.metrics.RecordStage(ctx, name, o.Kind.metricStatus(), elapsed)
		if o.Kind == KindFailed {
			p.logger.Warn("report stage failed", logging.Stage(name), logging.Err(o.Err))
		}
	}
	return market, area
}

func runStage[T any](ctx context.Context, p *Pipeline, name string, fn func(ctx context.Context) Outcome[T]) Outcome[T] {
	ctx, span := instrumentation.StartStageSpan(ctx, name)
	start := time.Now()
	out := fn(ctx)
	instrumentation.EndSpan(span, out.Err)
	p.metrics.RecordStage(ctx, name, out.Kind.metricStatus(), time.Since(start))

	switch out.Kind {
	case KindFailed:
		p.logger.Warn("report stage failed", logging.Stage(name), logging.Err(out.Err))
	case KindSkipped:
		p.logger.Debug("report stage skipped", logging.Stage(name), slog.String("reason", out.Reason))
	}
	return out
}
