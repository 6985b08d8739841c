package risk

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"climaroute/internal/types"
	"climaroute/internal/weather"
)

// defaultSegmentConcurrency bounds parallel per-segment fetches when the
// configured limit is missing or invalid.
const defaultSegmentConcurrency = 5

// WeatherFetcher is the upstream weather provider as seen by the pipeline.
// Implemented by *weather.Client; defined here for testability.
type WeatherFetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (*weather.Report, error)
}

// AssessmentRecorder persists completed assessments. Recording is best-effort:
// a storage failure is logged, never surfaced to the caller.
type AssessmentRecorder interface {
	Record(ctx context.Context, rec *types.AssessmentRecord) error
}

// SegmentRequest is one named route waypoint to score. Lat/Lon are pointers so
// a missing coordinate is distinguishable from zero (the equator is a valid
// place to drive).
type SegmentRequest struct {
	Lat  *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"omitempty,longitude"`
	Name string   `json:"name"`
}

// Service runs the full pipeline for locations and segment batches:
// fetch -> window -> scale -> classify -> aggregate.
type Service struct {
	fetcher  WeatherFetcher
	engine   *Engine
	recorder AssessmentRecorder // nil when history is disabled
	limit    int
	logger   *slog.Logger

	// now is injectable for window-alignment tests.
	now func() time.Time
}

// NewService wires the pipeline. recorder may be nil.
func NewService(fetcher WeatherFetcher, engine *Engine, recorder AssessmentRecorder, segmentConcurrency int, logger *slog.Logger) *Service {
	if segmentConcurrency <= 0 {
		segmentConcurrency = defaultSegmentConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:  fetcher,
		engine:   engine,
		recorder: recorder,
		limit:    segmentConcurrency,
		logger:   logger,
		now:      time.Now,
	}
}

// AssessLocation fetches fresh weather for the coordinate and runs inference.
// Every request fetches independently; there is no caching across requests.
func (s *Service) AssessLocation(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error) {
	report, err := s.fetcher.Fetch(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	window, err := weather.BuildWindow(report.Hourly, s.now())
	if err != nil {
		return nil, err
	}

	assessment, err := s.engine.Assess(ctx, window, report.Current)
	if err != nil {
		return nil, err
	}

	s.record(ctx, lat, lon, assessment)
	return assessment, nil
}

// ScoreSegments applies the pipeline to each named segment independently and
// attaches a recommended speed. Segments fetch in parallel up to the
// configured limit; the output order always mirrors the input order.
//
// A segment whose weather is missing or unfetchable is dropped from the output
// rather than failing the whole batch: partial results are preferred over
// total failure. Segments without coordinates are skipped before any fetch.
func (s *Service) ScoreSegments(ctx context.Context, segments []SegmentRequest) []types.SegmentResult {
	slots := make([]*types.SegmentResult, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)

	for i, seg := range segments {
		if seg.Lat == nil || seg.Lon == nil {
			continue
		}
		i, seg := i, seg
		lat, lon := *seg.Lat, *seg.Lon

		g.Go(func() error {
			report, err := s.fetcher.Fetch(gctx, lat, lon)
			if err != nil {
				s.logger.WarnContext(gctx, "dropping segment: weather fetch failed",
					"segment", seg.Name, "lat", lat, "lon", lon, "error", err)
				return nil
			}

			window, err := weather.BuildWindow(report.Hourly, s.now())
			if err != nil {
				s.logger.WarnContext(gctx, "dropping segment: no usable observations",
					"segment", seg.Name, "lat", lat, "lon", lon, "error", err)
				return nil
			}

			assessment, err := s.engine.Assess(gctx, window, report.Current)
			if err != nil {
				s.logger.WarnContext(gctx, "dropping segment: inference failed",
					"segment", seg.Name, "lat", lat, "lon", lon, "error", err)
				return nil
			}

			slots[i] = &types.SegmentResult{
				Name:             seg.Name,
				Lat:              lat,
				Lon:              lon,
				Temperature:      assessment.Temperature,
				Humidity:         assessment.Humidity,
				WindSpeed:        assessment.WindSpeed,
				Condition:        assessment.Condition,
				RainProbability:  assessment.RainProbability,
				RecommendedSpeed: RecommendedSpeed(assessment.RainProbability),
				SafetyScore:      assessment.SafetyScore,
			}
			return nil
		})
	}

	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()

	results := make([]types.SegmentResult, 0, len(segments))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

// record persists an assessment when history is enabled. Failures are logged
// and swallowed; history must never affect the request outcome.
func (s *Service) record(ctx context.Context, lat, lon float64, a *types.RiskAssessment) {
	if s.recorder == nil {
		return
	}
	rec := &types.AssessmentRecord{
		Lat:             lat,
		Lon:             lon,
		RainProbability: a.RainProbability,
		SafetyScore:     a.SafetyScore,
		Condition:       a.Condition,
		InferencePath:   s.engine.Path(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to record assessment history", "error", err)
	}
}
