package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/extract"
	"github.com/ict-ryuma/document-ocr/internal/normalize"
)

// Config selects the extraction strategy.
type Config struct {
	Strategy   string // constants.StrategyFallback | constants.StrategyHybrid
	AllowDummy bool   // append the dummy adapter as a last resort
}

// Request is one extraction call.
type Request struct {
	Path       string
	VendorName string // overrides whatever the backend reported
}

// AdapterStatus is reported by Adapters for health output.
type AdapterStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Orchestrator runs adapters according to Config and classifies the result.
// It keeps no state between calls.
type Orchestrator struct {
	cfg        Config
	adapters   []extract.Adapter
	dummy      extract.Adapter
	classifier *normalize.Classifier
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier replaces the default rule table.
func WithClassifier(c *normalize.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithClock sets the date used when an estimate date cannot be resolved.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithDummy replaces the built-in dummy adapter.
func WithDummy(a extract.Adapter) Option {
	return func(o *Orchestrator) { o.dummy = a }
}

// New builds an orchestrator over adapters in fallback order. Dummy adapters
// in the list are ignored; the dummy is only used when cfg.AllowDummy is set.
func New(cfg Config, adapters []extract.Adapter, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = constants.StrategyFallback
	}
	o := &Orchestrator{
		cfg:        cfg,
		classifier: normalize.NewClassifier(nil, nil),
		now:        time.Now,
		logger:     logger,
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if a.Name() == extract.NameDummy {
			o.dummy = a
			continue
		}
		o.adapters = append(o.adapters, a)
	}
	if o.dummy == nil {
		o.dummy = extract.NewDummyAdapter(logger)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Adapters lists the adapters in fallback order with their availability.
func (o *Orchestrator) Adapters() []AdapterStatus {
	chain := o.chain()
	out := make([]AdapterStatus, 0, len(chain))
	for _, a := range chain {
		out = append(out, AdapterStatus{Name: a.Name(), Available: a.Available()})
	}
	return out
}

// Extract runs the configured strategy on req.Path and returns a classified result.
func (o *Orchestrator) Extract(ctx context.Context, req Request) (entity.ExtractionResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	log := o.logger.With("req_id", rid, "file", filepath.Base(req.Path), "strategy", o.cfg.Strategy)
	start := time.Now()

	if strings.TrimSpace(req.Path) == "" {
		return entity.ExtractionResult{}, common.WrapError(common.ErrInvalidInput, "file path is required")
	}
	log.Debug("orchestrator.state", "state", "idle")

	var (
		raw entity.RawExtraction
		err error
	)
	switch o.cfg.Strategy {
	case constants.StrategyHybrid:
		raw, err = o.hybrid(ctx, log, req.Path)
	default:
		raw, err = o.fallback(ctx, log, req.Path)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("orchestrator.canceled", "error", ctxErr, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractionResult{}, ctxErr
	}
	if err != nil {
		log.Error("orchestrator.state", "state", "all_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractionResult{}, err
	}

	log.Debug("orchestrator.state", "state", "classify")
	res := o.finalize(log, raw, req)
	log.Info("orchestrator.state",
		"state", "done",
		"method", res.Method,
		"items", len(res.Items),
		"warnings", len(res.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) chain() []extract.Adapter {
	chain := append([]extract.Adapter(nil), o.adapters...)
	if o.cfg.AllowDummy && o.dummy != nil {
		chain = append(chain, o.dummy)
	}
	return chain
}

func (o *Orchestrator) fallback(ctx context.Context, log *slog.Logger, path string) (entity.RawExtraction, error) {
	var attempts []Attempt
	for i, a := range o.chain() {
		if err := ctx.Err(); err != nil {
			return entity.RawExtraction{}, err
		}
		state := "try_secondary"
		if i == 0 {
			state = "try_primary"
		}
		log.Debug("orchestrator.state", "state", state, "adapter", a.Name())

		raw, err := o.run(ctx, a, path)
		if err != nil {
			if ctx.Err() != nil {
				return entity.RawExtraction{}, ctx.Err()
			}
			log.Warn("orchestrator.fallback.attempt_failed", "adapter", a.Name(), "error", err)
			attempts = append(attempts, Attempt{Adapter: a.Name(), Err: err})
			continue
		}
		log.Debug("orchestrator.state", "state", "select", "adapter", a.Name())
		return raw, nil
	}
	return entity.RawExtraction{}, &AllAdaptersFailedError{Attempts: attempts}
}

func (o *Orchestrator) hybrid(ctx context.Context, log *slog.Logger, path string) (entity.RawExtraction, error) {
	vision := o.byName(extract.NameVision)
	document := o.byName(extract.NameDocument)

	var (
		vRaw, dRaw entity.RawExtraction
		vErr, dErr error
	)
	log.Debug("orchestrator.state", "state", "try_primary", "adapters", []string{extract.NameVision, extract.NameDocument})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vRaw, vErr = o.runNamed(gctx, vision, extract.NameVision, path)
		return nil
	})
	g.Go(func() error {
		dRaw, dErr = o.runNamed(gctx, document, extract.NameDocument, path)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return entity.RawExtraction{}, err
	}
	log.Debug("orchestrator.state", "state", "merge")

	switch {
	case vErr == nil && dErr == nil:
		return mergeHybrid(vRaw, dRaw), nil
	case vErr == nil:
		log.Warn("orchestrator.hybrid.side_failed", "adapter", extract.NameDocument, "error", dErr)
		vRaw.Warnings = append(vRaw.Warnings, fmt.Sprintf("%s extraction failed: %v", extract.NameDocument, dErr))
		return vRaw, nil
	case dErr == nil:
		log.Warn("orchestrator.hybrid.side_failed", "adapter", extract.NameVision, "error", vErr)
		dRaw.Warnings = append(dRaw.Warnings, fmt.Sprintf("%s extraction failed: %v", extract.NameVision, vErr))
		return dRaw, nil
	}

	attempts := []Attempt{
		{Adapter: extract.NameVision, Err: vErr},
		{Adapter: extract.NameDocument, Err: dErr},
	}
	if !o.cfg.AllowDummy || o.dummy == nil {
		return entity.RawExtraction{}, &AllAdaptersFailedError{Attempts: attempts}
	}

	log.Warn("orchestrator.hybrid.dummy", "vision_error", vErr, "document_error", dErr)
	raw, err := o.run(ctx, o.dummy, path)
	if err != nil {
		attempts = append(attempts, Attempt{Adapter: o.dummy.Name(), Err: err})
		return entity.RawExtraction{}, &AllAdaptersFailedError{Attempts: attempts}
	}
	for _, a := range attempts {
		raw.Warnings = append(raw.Warnings, fmt.Sprintf("%s extraction failed: %v", a.Adapter, a.Err))
	}
	return raw, nil
}

// mergeHybrid takes header fields from vision and line items from document.
func mergeHybrid(v, d entity.RawExtraction) entity.RawExtraction {
	out := entity.RawExtraction{
		VendorName:    firstNonEmpty(v.VendorName, d.VendorName),
		VendorAddress: firstNonEmpty(v.VendorAddress, d.VendorAddress),
		EstimateDate:  firstNonEmpty(v.EstimateDate, d.EstimateDate),
		TotalExclTax:  v.TotalExclTax,
		TotalInclTax:  v.TotalInclTax,
		Items:         d.Items,
		Method:        fmt.Sprintf("hybrid(header:%s, items:%s)", methodOr(v, extract.NameVision), methodOr(d, extract.NameDocument)),
	}
	out.Warnings = append(append([]string(nil), v.Warnings...), d.Warnings...)
	return out
}

func (o *Orchestrator) byName(name string) extract.Adapter {
	for _, a := range o.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

func (o *Orchestrator) runNamed(ctx context.Context, a extract.Adapter, name, path string) (entity.RawExtraction, error) {
	if a == nil {
		return entity.RawExtraction{}, extract.NewConfigurationError(name, "adapter not registered")
	}
	return o.run(ctx, a, path)
}

func (o *Orchestrator) run(ctx context.Context, a extract.Adapter, path string) (entity.RawExtraction, error) {
	if !a.Available() {
		return entity.RawExtraction{}, extract.NewConfigurationError(a.Name(), "adapter not available")
	}
	raw, err := a.Extract(ctx, path)
	if err != nil {
		return entity.RawExtraction{}, err
	}
	if raw.Method == "" {
		raw.Method = a.Name()
	}
	return raw, nil
}

// finalize classifies items, resolves totals, date and vendor.
func (o *Orchestrator) finalize(log *slog.Logger, raw entity.RawExtraction, req Request) entity.ExtractionResult {
	res := entity.ExtractionResult{
		VendorName:    firstNonEmpty(strings.TrimSpace(req.VendorName), strings.TrimSpace(raw.VendorName), constants.DefaultVendorName),
		VendorAddress: strings.TrimSpace(raw.VendorAddress),
		Items:         o.classifier.ClassifyAll(raw.Items),
		Warnings:      append([]string{}, raw.Warnings...),
		Method:        raw.Method,
	}

	date, ok := normalize.DateOn(raw.EstimateDate, o.now())
	if !ok {
		log.Warn("orchestrator.date.fallback", "raw", raw.EstimateDate, "date", date)
		res.Warnings = append(res.Warnings, "date unresolved: "+raw.EstimateDate)
	}
	res.EstimateDate = date

	res.TotalExclTax, res.TotalInclTax = resolveTotals(raw)
	return res
}

// resolveTotals prefers reported totals, else sums line amounts and applies
// consumption tax with integer truncation.
func resolveTotals(raw entity.RawExtraction) (excl, incl *int64) {
	if raw.TotalExclTax != nil {
		excl = entity.Int64Ptr(*raw.TotalExclTax)
	} else {
		var sum int64
		for _, it := range raw.Items {
			sum += it.AmountExclTax
		}
		excl = entity.Int64Ptr(sum)
	}
	if raw.TotalInclTax != nil {
		incl = entity.Int64Ptr(*raw.TotalInclTax)
	} else {
		incl = entity.Int64Ptr(*excl * (100 + constants.ConsumptionTaxPercent) / 100)
	}
	return excl, incl
}

func methodOr(raw entity.RawExtraction, name string) string {
	if raw.Method == "" {
		return name
	}
	return raw.Method
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
