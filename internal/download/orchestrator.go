package download

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tunegrab/internal/catalog"
	"tunegrab/internal/job"
	"tunegrab/internal/logger"
	"tunegrab/internal/match"
	"tunegrab/internal/source"
	"tunegrab/pkg/utils"
)

// defaultStageTimeout bounds a single stage (search, fetch, tag, place) when
// Options.StageTimeout is unset. Fetching a long track over a slow link is
// the case it has to accommodate.
const defaultStageTimeout = 10 * time.Minute

// Tagger stamps metadata into a downloaded file.
type Tagger interface {
	Apply(ctx context.Context, path string, track catalog.Track) error
}

// Placer moves a finished file into the library and triggers indexing.
type Placer interface {
	Place(path, artist, album string) (string, error)
	TriggerRescan(ctx context.Context) error
}

// Recorder persists completed downloads for later existence checks.
type Recorder interface {
	Record(track catalog.Track, filePath string) error
}

// Lookup is the reverse-flow inspection result: resolved source metadata,
// the derived catalog query, and the catalog's candidate tracks in provider
// relevance order.
type Lookup struct {
	Source     source.Info       `json:"source"`
	Query      match.SearchQuery `json:"query"`
	Candidates []catalog.Track   `json:"candidates"`
}

// Orchestrator turns accepted requests into tracked background jobs. Job
// creation is synchronous (the caller always gets an identifier to poll);
// stages run in a per-job goroutine. No retry, no cancellation: a failed job
// is retried by submitting a new request.
type Orchestrator struct {
	catalog      catalog.Provider
	searcher     source.Searcher
	fetcher      source.Fetcher
	resolver     source.Resolver
	matcher      *match.Matcher
	tracker      *job.Tracker
	tagger       Tagger
	placer       Placer
	history      Recorder
	stageTimeout time.Duration
	log          *logger.Logger
}

// Options collects the orchestrator's collaborators. All fields except
// History and StageTimeout are required.
type Options struct {
	Catalog      catalog.Provider
	Searcher     source.Searcher
	Fetcher      source.Fetcher
	Resolver     source.Resolver
	Matcher      *match.Matcher
	Tracker      *job.Tracker
	Tagger       Tagger
	Placer       Placer
	History      Recorder
	StageTimeout time.Duration
	Logger       *logger.Logger
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = defaultStageTimeout
	}
	return &Orchestrator{
		catalog:      opts.Catalog,
		searcher:     opts.Searcher,
		fetcher:      opts.Fetcher,
		resolver:     opts.Resolver,
		matcher:      opts.Matcher,
		tracker:      opts.Tracker,
		tagger:       opts.Tagger,
		placer:       opts.Placer,
		history:      opts.History,
		stageTimeout: opts.StageTimeout,
		log:          opts.Logger,
	}
}

// stageCtx bounds one background stage. Jobs run detached from the request
// that started them, so the bound comes from the configured stage timeout
// rather than an inherited context.
func (o *Orchestrator) stageCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.stageTimeout)
}

// Candidates returns the ranked source candidates for a catalog track, for
// user selection when automatic matching is not confident enough.
func (o *Orchestrator) Candidates(ctx context.Context, trackID string) (catalog.Track, match.Decision, error) {
	track, err := o.catalog.GetTrack(ctx, trackID)
	if err != nil {
		return catalog.Track{}, match.Decision{}, err
	}

	candidates, err := o.searcher.Search(ctx, match.Query(track), 8)
	if err != nil {
		return catalog.Track{}, match.Decision{}, err
	}
	return track, o.matcher.Rank(track, candidates), nil
}

// StartTrack accepts a single-track download. The catalog track is fetched
// synchronously so malformed requests fail before a job exists; the returned
// job is already registered and pollable.
func (o *Orchestrator) StartTrack(ctx context.Context, req Request) (job.Job, error) {
	if err := req.Validate(); err != nil {
		return job.Job{}, err
	}

	track, err := o.catalog.GetTrack(ctx, req.TrackID)
	if err != nil {
		return job.Job{}, err
	}

	j, err := o.tracker.Create(track.ID, track, "")
	if err != nil {
		return job.Job{}, err
	}

	go o.processTrack(j.ID, track, req.SourceID, req.Location)
	return j, nil
}

// StartAlbum fans an album out into one independent job per track. Tracks
// with an already-active job are skipped rather than failing the whole
// request.
func (o *Orchestrator) StartAlbum(ctx context.Context, req AlbumRequest) ([]job.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	album, err := o.catalog.GetAlbum(ctx, req.AlbumID)
	if err != nil {
		return nil, err
	}
	if len(album.Tracks) == 0 {
		return nil, validationErrorf("album %s has no tracks", req.AlbumID)
	}

	jobs := make([]job.Job, 0, len(album.Tracks))
	for _, track := range album.Tracks {
		j, err := o.tracker.Create(track.ID, track, album.ID)
		if err != nil {
			o.log.Warnf("skipping track %s in album %s: %v", track.ID, album.ID, err)
			continue
		}
		jobs = append(jobs, j)
		go o.processTrack(j.ID, track, "", req.Location)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("album %s: %w", req.AlbumID, job.ErrDuplicate)
	}
	return jobs, nil
}

// ReverseLookup resolves a source URL and searches the catalog with a query
// derived from its title and uploader.
func (o *Orchestrator) ReverseLookup(ctx context.Context, rawURL string) (Lookup, error) {
	if rawURL == "" {
		return Lookup{}, validationErrorf("url is required")
	}

	info, err := o.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return Lookup{}, err
	}

	query := match.DeriveQuery(info.Title, info.Uploader)
	candidates, err := o.catalog.SearchTracks(ctx, query.String(), 10)
	if err != nil {
		return Lookup{}, err
	}

	return Lookup{Source: info, Query: query, Candidates: candidates}, nil
}

// StartReverse accepts a download for a source URL with either a selected
// catalog track or manual metadata. Reverse jobs get generated identifiers
// so they never collide with forward per-track jobs.
func (o *Orchestrator) StartReverse(ctx context.Context, req ReverseRequest) (job.Job, error) {
	if err := req.Validate(); err != nil {
		return job.Job{}, err
	}

	info, err := o.resolver.Resolve(ctx, req.URL)
	if err != nil {
		return job.Job{}, err
	}

	jobID := "rev_" + uuid.NewString()

	var track catalog.Track
	if req.TrackID != "" {
		track, err = o.catalog.GetTrack(ctx, req.TrackID)
		if err != nil {
			return job.Job{}, err
		}
	} else {
		track = req.Manual.track(jobID)
		if track.ArtworkURL == "" {
			track.ArtworkURL = info.Thumbnail
		}
	}

	j, err := o.tracker.Create(jobID, track, "")
	if err != nil {
		return job.Job{}, err
	}

	go o.processFetch(j.ID, track, info.ID, req.Location)
	return j, nil
}

// processTrack runs the forward flow: resolve a source for the track, then
// fetch, tag and place.
func (o *Orchestrator) processTrack(jobID string, track catalog.Track, sourceID string, loc Location) {
	defer o.recoverJob(jobID)

	o.advance(jobID, job.StageResolving, "resolving audio source", 10)

	if sourceID == "" {
		ctx, cancel := o.stageCtx()
		candidates, err := o.searcher.Search(ctx, match.Query(track), 8)
		cancel()
		if err != nil {
			o.fail(jobID, fmt.Sprintf("source search failed: %v", err))
			return
		}

		decision := o.matcher.Rank(track, candidates)
		if len(decision.Candidates) == 0 {
			o.fail(jobID, "no audio source found")
			return
		}
		if decision.NeedsConfirmation {
			// Never silently pick a low-confidence candidate.
			o.fail(jobID, fmt.Sprintf("no confident match (best score %.2f), pick a candidate manually", decision.BestScore))
			return
		}
		sourceID = decision.Best().ID
	}

	o.processFetch(jobID, track, sourceID, loc)
}

// processFetch runs the stages shared by the forward and reverse flows,
// starting from a resolved source identifier. The audio is staged in a
// per-job temporary directory; only a local-location success keeps it, and
// the file handler removes it after serving.
func (o *Orchestrator) processFetch(jobID string, track catalog.Track, sourceID string, loc Location) {
	defer o.recoverJob(jobID)

	tmpDir, err := utils.CreateTempDir()
	if err != nil {
		o.fail(jobID, fmt.Sprintf("staging failed: %v", err))
		return
	}
	keepTemp := false
	defer func() {
		if keepTemp {
			return
		}
		if err := utils.Cleanup(tmpDir); err != nil {
			o.log.Warnf("job %s: temp cleanup failed: %v", jobID, err)
		}
	}()

	o.advance(jobID, job.StageFetching, "downloading audio", 30)

	fetchCtx, cancel := o.stageCtx()
	path, err := o.fetcher.Fetch(fetchCtx, sourceID, filepath.Join(tmpDir, jobID))
	cancel()
	if err != nil {
		o.fail(jobID, fmt.Sprintf("download failed: %v", err))
		return
	}

	o.advance(jobID, job.StageFetching, "processing audio", 50)
	o.advance(jobID, job.StageTagging, "writing tags", 85)

	tagCtx, cancel := o.stageCtx()
	err = o.tagger.Apply(tagCtx, path, track)
	cancel()
	if err != nil {
		o.fail(jobID, fmt.Sprintf("tagging failed: %v", err))
		return
	}

	switch loc {
	case LocationLibrary:
		o.advance(jobID, job.StagePlacing, "placing in library", 90)

		artist := track.AlbumArtist
		if artist == "" {
			artist = track.Artist
		}
		placed, err := o.placer.Place(path, artist, track.Album)
		if err != nil {
			o.fail(jobID, fmt.Sprintf("library placement failed: %v", err))
			return
		}

		// Rescan is best-effort: the placement is the success criterion.
		rescanCtx, cancel := o.stageCtx()
		err = o.placer.TriggerRescan(rescanCtx)
		cancel()
		if err != nil {
			o.log.Warnf("job %s: library rescan failed: %v", jobID, err)
		}

		o.record(track, placed)
		o.complete(jobID, "placed in library", job.Result{FilePath: placed})

	default:
		keepTemp = true
		o.record(track, path)
		o.complete(jobID, "ready for download", job.Result{
			FilePath:    path,
			DownloadURL: "/api/download/file/" + jobID,
		})
	}
}

func (o *Orchestrator) record(track catalog.Track, path string) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(track, path); err != nil {
		o.log.Warnf("failed to record download %s: %v", track.ID, err)
	}
}

// recoverJob converts a stage panic into the job's terminal error state so a
// bug in one job never crashes the process or leaves a stuck queued job.
func (o *Orchestrator) recoverJob(jobID string) {
	if r := recover(); r != nil {
		o.log.Errorf("job %s panicked: %v", jobID, r)
		o.fail(jobID, fmt.Sprintf("internal error: %v", r))
	}
}

func (o *Orchestrator) advance(jobID string, stage job.Stage, message string, progress int) {
	if err := o.tracker.Advance(jobID, stage, message, progress); err != nil {
		o.log.Warnf("job %s: %v", jobID, err)
	}
}

func (o *Orchestrator) complete(jobID, message string, result job.Result) {
	if err := o.tracker.Complete(jobID, message, result); err != nil {
		o.log.Warnf("job %s: %v", jobID, err)
	}
}

func (o *Orchestrator) fail(jobID, message string) {
	o.log.Warnf("job %s failed: %s", jobID, message)
	if err := o.tracker.Fail(jobID, message); err != nil {
		o.log.Warnf("job %s: %v", jobID, err)
	}
}
