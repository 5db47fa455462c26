package catalog

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/visiguard/internal/blob"
	"github.com/romariotrain/visiguard/internal/classifier"
	"github.com/romariotrain/visiguard/internal/video/domain"
	"github.com/romariotrain/visiguard/internal/video/models"
	"github.com/romariotrain/visiguard/internal/video/pipeline"
	"github.com/romariotrain/visiguard/internal/video/repository"
)

var (
	admin  = models.User{ID: "u1", Name: "Admin User", OrgID: "org1", Role: models.AdminRole}
	editor = models.User{ID: "u2", Name: "Content Editor", OrgID: "org1", Role: models.EditorRole}
	viewer = models.User{ID: "u3", Name: "Regular Viewer", OrgID: "org1", Role: models.ViewerRole}
	other  = models.User{ID: "u9", Name: "Other Admin", OrgID: "org2", Role: models.AdminRole}
)

type fixture struct {
	svc    *Service
	engine *pipeline.Engine
	repo   *repository.MemoryRepository
	store  *flakyStore
	blobs  *blob.MemoryStore
}

type fixtureOpts struct {
	verdict  models.Sensitivity
	pacer    pipeline.Pacer
	blobs    blob.Store
	seed     []models.Video
	recovery domain.RecoveryPolicy
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	if o.verdict == "" {
		o.verdict = models.SafeSensitivity
	}
	if o.pacer == nil {
		o.pacer = pipeline.NoDelay{}
	}
	mem := blob.NewMemoryStore()
	store := o.blobs
	if store == nil {
		store = mem
	}

	cls, err := classifier.New(classifier.Config{Model: classifier.Static(o.verdict), Logger: zerolog.Nop()})
	require.NoError(t, err)

	engine, err := pipeline.NewEngine(pipeline.Config{
		Blobs:      store,
		Classifier: cls,
		Pacer:      o.pacer,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	repo := repository.NewMemoryRepository(o.seed...)
	flaky := &flakyStore{MemoryRepository: repo}
	svc, err := New(Config{
		Store:    flaky,
		Blobs:    store,
		Linker:   blob.NewLocalLinker(store, blob.NewSigner([]byte("secret")), "http://localhost:8080", time.Minute),
		Runner:   engine,
		Recovery: o.recovery,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	t.Cleanup(func() {
		engine.Wait()
		svc.Wait()
	})
	return &fixture{svc: svc, engine: engine, repo: repo, store: flaky, blobs: mem}
}

func upload(title string, size int) models.Upload {
	return models.Upload{
		FileName:    "clip.mp4",
		MimeType:    "video/mp4",
		Data:        bytes.Repeat([]byte{1}, size),
		Title:       title,
		Description: "Company results",
	}
}

func ids(videos []models.Video) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.ID)
	}
	return out
}

func TestCreate_VisibleBeforePipelineCompletes(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, fixtureOpts{pacer: holdPacer{release: release}})
	defer close(release)

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 1024), editor)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	listed := f.svc.List(editor)
	require.Len(t, listed, 1)
	v := listed[0]
	assert.Equal(t, id, v.ID)
	assert.Equal(t, models.UploadingStatus, v.Status)
	assert.Equal(t, models.PendingSensitivity, v.Sensitivity)
	assert.Equal(t, 0, v.Progress)
	assert.Equal(t, "u2", v.UploadedBy)
	assert.Equal(t, "org1", v.OrgID)
	assert.Equal(t, int64(1024), v.FileSize)
	assert.Equal(t, "https://picsum.photos/seed/"+id+"/400/225", v.ThumbnailURL)

	// Persisted before any processing.
	stored, err := f.repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].ID)

	assert.Empty(t, f.svc.List(viewer))
	assert.True(t, f.engine.Active(id))
}

func TestCreate_UniqueIDs(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	fixed := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	second := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	calls := 0
	f.svc.idGen = func() uuid.UUID {
		calls++
		if calls <= 2 {
			return fixed
		}
		return second
	}

	first, err := f.svc.Create(context.Background(), upload("One", 10), editor)
	require.NoError(t, err)
	next, err := f.svc.Create(context.Background(), upload("Two", 10), editor)
	require.NoError(t, err)

	assert.Equal(t, fixed.String(), first)
	assert.Equal(t, second.String(), next)
}

func TestCreate_InvalidArguments(t *testing.T) {
	cases := []struct {
		name string
		up   models.Upload
		user models.User
	}{
		{name: "empty title", up: upload("  ", 10), user: editor},
		{name: "missing file", up: models.Upload{Title: "x", FileName: "a.mp4"}, user: editor},
		{name: "missing file name", up: models.Upload{Title: "x", Data: []byte{1}}, user: editor},
		{name: "anonymous user", up: upload("x", 10), user: models.User{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := new(StoreMock)
			runner := new(RunnerMock)
			svc, err := New(Config{
				Store: st, Blobs: blob.NewMemoryStore(), Linker: blob.NewLocalLinker(blob.NewMemoryStore(), blob.NewSigner(nil), "", 0),
				Runner: runner, Logger: zerolog.Nop(),
			})
			require.NoError(t, err)

			_, err = svc.Create(context.Background(), tc.up, tc.user)
			require.ErrorIs(t, err, models.ErrInvalidArgument)
			st.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
			runner.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestCreate_PersistFailureDoesNotStartJob(t *testing.T) {
	st := new(StoreMock)
	runner := new(RunnerMock)
	st.On("LoadAll", mock.Anything).Return(nil, nil).Once()
	st.On("SaveAll", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	svc, err := New(Config{
		Store: st, Blobs: blob.NewMemoryStore(), Linker: blob.NewLocalLinker(blob.NewMemoryStore(), blob.NewSigner(nil), "", 0),
		Runner: runner, Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	_, err = svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.Error(t, err)
	assert.Empty(t, svc.List(admin))
	runner.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	st.AssertExpectations(t)
}

func TestCreate_SubmitFailureMarksFailed(t *testing.T) {
	runner := new(RunnerMock)
	runner.On("Submit", mock.Anything, mock.Anything).Return(pipeline.ErrClosed).Once()

	svc, err := New(Config{
		Store: repository.NewMemoryRepository(), Blobs: blob.NewMemoryStore(),
		Linker: blob.NewLocalLinker(blob.NewMemoryStore(), blob.NewSigner(nil), "", 0),
		Runner: runner, Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.ErrorIs(t, err, pipeline.ErrClosed)

	listed := svc.List(admin)
	require.Len(t, listed, 1)
	assert.Equal(t, models.FailedStatus, listed[0].Status)
}

func TestScenario_SafeVideoVisibleToWholeOrg(t *testing.T) {
	f := newFixture(t, fixtureOpts{verdict: models.SafeSensitivity})

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10<<20), editor)
	require.NoError(t, err)
	f.engine.Wait()

	for _, u := range []models.User{admin, editor, viewer} {
		listed := f.svc.List(u)
		require.Len(t, listed, 1, "user %s", u.ID)
		v := listed[0]
		assert.Equal(t, id, v.ID)
		assert.Equal(t, models.CompletedStatus, v.Status)
		assert.Equal(t, 100, v.Progress)
		assert.Equal(t, models.SafeSensitivity, v.Sensitivity)
	}
	assert.Empty(t, f.svc.List(other))

	stored, err := f.repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.CompletedStatus, stored[0].Status)
}

func TestScenario_FlaggedVideoHiddenFromViewer(t *testing.T) {
	f := newFixture(t, fixtureOpts{verdict: models.FlaggedSensitivity})

	id, err := f.svc.Create(context.Background(), upload("Street fight compilation", 100), editor)
	require.NoError(t, err)
	f.engine.Wait()

	for _, u := range []models.User{admin, editor} {
		listed := f.svc.List(u)
		require.Len(t, listed, 1)
		assert.Equal(t, id, listed[0].ID)
		assert.Equal(t, models.CompletedStatus, listed[0].Status)
		assert.Equal(t, 100, listed[0].Progress)
		assert.Equal(t, models.FlaggedSensitivity, listed[0].Sensitivity)
	}
	assert.Empty(t, f.svc.List(viewer))
}

func TestScenario_BlobWriteFailure(t *testing.T) {
	broken := brokenBlobs{MemoryStore: blob.NewMemoryStore(), put: true}
	f := newFixture(t, fixtureOpts{blobs: broken})

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 100), editor)
	require.NoError(t, err)
	f.engine.Wait()

	for _, u := range []models.User{admin, editor} {
		listed := f.svc.List(u)
		require.Len(t, listed, 1)
		assert.Equal(t, id, listed[0].ID)
		assert.Equal(t, models.FailedStatus, listed[0].Status)
		assert.Equal(t, models.PendingSensitivity, listed[0].Sensitivity)
		assert.Equal(t, 30, listed[0].Progress)
	}
	assert.Empty(t, f.svc.List(viewer))

	_, err = f.svc.PlaybackReference(context.Background(), id)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestScenario_RestartRepairsInterruptedVideo(t *testing.T) {
	stuck := models.Video{
		ID: "v1", Title: "Interrupted", OrgID: "org1", UploadedBy: "u2",
		Status: models.ProcessingStatus, Progress: 55, Sensitivity: models.PendingSensitivity,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("complete policy", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{seed: []models.Video{stuck}})

		listed := f.svc.List(viewer)
		require.Len(t, listed, 1)
		assert.Equal(t, models.CompletedStatus, listed[0].Status)
		assert.Equal(t, 100, listed[0].Progress)
		assert.Equal(t, models.SafeSensitivity, listed[0].Sensitivity)

		stored, err := f.repo.LoadAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.CompletedStatus, stored[0].Status)
		assert.Equal(t, 1, f.repo.Saves())
	})

	t.Run("fail policy", func(t *testing.T) {
		f := newFixture(t, fixtureOpts{seed: []models.Video{stuck}, recovery: domain.RecoverFail})

		assert.Empty(t, f.svc.List(viewer))
		listed := f.svc.List(admin)
		require.Len(t, listed, 1)
		assert.Equal(t, models.FailedStatus, listed[0].Status)
		assert.Equal(t, 55, listed[0].Progress)
	})

	t.Run("nothing to repair", func(t *testing.T) {
		done := stuck
		done.Status = models.CompletedStatus
		done.Progress = 100
		done.Sensitivity = models.SafeSensitivity
		f := newFixture(t, fixtureOpts{seed: []models.Video{done}})

		assert.Len(t, f.svc.List(viewer), 1)
		assert.Equal(t, 0, f.repo.Saves())
	})
}

func TestLoad_UnreadableStoreStartsEmpty(t *testing.T) {
	st := new(StoreMock)
	st.On("LoadAll", mock.Anything).Return(nil, errors.New("corrupt document")).Once()

	svc, err := New(Config{
		Store: st, Blobs: blob.NewMemoryStore(), Linker: blob.NewLocalLinker(blob.NewMemoryStore(), blob.NewSigner(nil), "", 0),
		Runner: new(RunnerMock), Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Load(context.Background()))
	assert.Empty(t, svc.List(admin))
	st.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}

type updateLog struct {
	mu  sync.Mutex
	got []models.Update
}

func (l *updateLog) record(u models.Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, u)
}

func (l *updateLog) updates() []models.Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Update(nil), l.got...)
}

func TestSubscribe_ProgressStrictlyIncreases(t *testing.T) {
	f := newFixture(t, fixtureOpts{verdict: models.SafeSensitivity})
	log := &updateLog{}
	unsubscribe := f.svc.Subscribe(log.record)
	defer unsubscribe()

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	f.engine.Wait()

	got := log.updates()
	require.NotEmpty(t, got)
	assert.Equal(t, models.CreatedUpdate, got[0].Kind)
	assert.Equal(t, 0, got[0].Progress)

	prev := got[0].Progress
	for _, u := range got[1:] {
		assert.Equal(t, id, u.VideoID)
		assert.Equal(t, models.CheckpointUpdate, u.Kind)
		assert.Greater(t, u.Progress, prev)
		prev = u.Progress
	}

	last := got[len(got)-1]
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, models.CompletedStatus, last.Status)
	require.NotNil(t, last.Sensitivity)
	assert.Equal(t, models.SafeSensitivity, *last.Sensitivity)
	for _, u := range got[:len(got)-1] {
		assert.Nil(t, u.Sensitivity)
	}
}

func TestApply_TerminalStateIsFinal(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	f.engine.Wait()

	log := &updateLog{}
	defer f.svc.Subscribe(log.record)()

	err = f.svc.Apply(context.Background(), models.Checkpoint{VideoID: id, Status: models.FailedStatus})
	require.ErrorIs(t, err, domain.ErrTerminal)

	v, err := f.svc.Get(admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.CompletedStatus, v.Status)
	assert.Empty(t, log.updates())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	first, second := &updateLog{}, &updateLog{}
	unsubscribe := f.svc.Subscribe(first.record)
	f.svc.Subscribe(second.record)
	f.svc.Subscribe(func(models.Update) { panic("observer bug") })

	unsubscribe()
	unsubscribe()

	_, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	f.engine.Wait()

	assert.Empty(t, first.updates())
	assert.NotEmpty(t, second.updates())
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	log := &updateLog{}
	defer f.svc.Subscribe(log.record)()

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	f.engine.Wait()

	ref, err := f.svc.PlaybackReference(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, ref.URL, "/videos/"+id+"/stream?")

	require.NoError(t, f.svc.Delete(context.Background(), id))

	for _, u := range []models.User{admin, editor, viewer} {
		assert.NotContains(t, ids(f.svc.List(u)), id)
	}
	_, err = f.svc.PlaybackReference(context.Background(), id)
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.blobs.Get(context.Background(), id)
	require.ErrorIs(t, err, blob.ErrNotFound)

	got := log.updates()
	assert.Equal(t, models.DeletedUpdate, got[len(got)-1].Kind)

	require.ErrorIs(t, f.svc.Delete(context.Background(), id), models.ErrNotFound)
}

func TestDelete_DuringPipelineDoesNotResurrect(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, fixtureOpts{pacer: holdPacer{release: release}})
	log := &updateLog{}
	defer f.svc.Subscribe(log.record)()

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	require.True(t, f.engine.Active(id))

	require.NoError(t, f.svc.Delete(context.Background(), id))
	close(release)
	f.engine.Wait()
	assert.False(t, f.engine.Active(id))

	assert.Empty(t, f.svc.List(admin))
	stored, err := f.repo.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	got := log.updates()
	require.Len(t, got, 2)
	assert.Equal(t, models.CreatedUpdate, got[0].Kind)
	assert.Equal(t, models.DeletedUpdate, got[1].Kind)
}

func TestDelete_BlobFailureIsSwallowed(t *testing.T) {
	broken := brokenBlobs{MemoryStore: blob.NewMemoryStore(), del: true}
	f := newFixture(t, fixtureOpts{blobs: broken})

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	f.engine.Wait()

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.Empty(t, f.svc.List(admin))
}

func TestDelete_PersistFailurePropagates(t *testing.T) {
	seed := []models.Video{{ID: "v1", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100}}
	st := new(StoreMock)
	runner := new(RunnerMock)
	st.On("LoadAll", mock.Anything).Return(seed, nil).Once()
	st.On("SaveAll", mock.Anything, mock.Anything).Return(errors.New("read-only filesystem")).Once()

	svc, err := New(Config{
		Store: st, Blobs: blob.NewMemoryStore(), Linker: blob.NewLocalLinker(blob.NewMemoryStore(), blob.NewSigner(nil), "", 0),
		Runner: runner, Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))

	require.Error(t, svc.Delete(context.Background(), "v1"))
	assert.Len(t, svc.List(admin), 1)
	st.AssertExpectations(t)
	runner.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestDelete_PersistFailureKeepsJobRunning(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, fixtureOpts{pacer: holdPacer{release: release}})

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	require.True(t, f.engine.Active(id))

	f.store.fail.Store(true)
	require.Error(t, f.svc.Delete(context.Background(), id))
	assert.True(t, f.engine.Active(id))

	f.store.fail.Store(false)
	close(release)
	f.engine.Wait()

	v, err := f.svc.Get(admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.CompletedStatus, v.Status)
	assert.Equal(t, 100, v.Progress)

	stored, err := f.repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.CompletedStatus, stored[0].Status)
}

func TestDelete_FromObserverDuringPipeline(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	var (
		once      sync.Once
		deleteErr error
	)
	defer f.svc.Subscribe(func(u models.Update) {
		if u.Kind == models.CheckpointUpdate && u.Status == models.ProcessingStatus {
			once.Do(func() { deleteErr = f.svc.Delete(context.Background(), u.VideoID) })
		}
	})()

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		f.engine.Wait()
		f.svc.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("delete from observer blocked the pipeline")
	}

	require.NoError(t, deleteErr)
	_, err = f.svc.Get(admin, id)
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.blobs.Get(context.Background(), id)
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestDelete_BeforeJobStartsLeavesNoBlob(t *testing.T) {
	store := blob.NewMemoryStore()
	runner := &deferredRunner{}
	svc, err := New(Config{
		Store:  repository.NewMemoryRepository(),
		Blobs:  store,
		Linker: blob.NewLocalLinker(store, blob.NewSigner(nil), "", 0),
		Runner: runner,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	id, err := svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), id))

	cls, err := classifier.New(classifier.Config{Model: classifier.Static(models.SafeSensitivity), Logger: zerolog.Nop()})
	require.NoError(t, err)
	engine, err := pipeline.NewEngine(pipeline.Config{Blobs: store, Classifier: cls, Pacer: pipeline.NoDelay{}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	job, sink := runner.submitted()
	require.Equal(t, id, job.VideoID)
	require.NoError(t, engine.Submit(job, sink))
	engine.Wait()

	_, err = store.Get(context.Background(), id)
	require.ErrorIs(t, err, blob.ErrNotFound)
	assert.Empty(t, svc.List(admin))
}

func TestApply_PersistFailureLeavesTableUnchanged(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, fixtureOpts{pacer: holdPacer{release: release}})
	defer close(release)

	id, err := f.svc.Create(context.Background(), upload("Quarterly Update", 10), editor)
	require.NoError(t, err)

	log := &updateLog{}
	defer f.svc.Subscribe(log.record)()
	f.store.fail.Store(true)

	err = f.svc.Apply(context.Background(), models.Checkpoint{VideoID: id, Progress: 10, Status: models.UploadingStatus})
	require.Error(t, err)
	v, err := f.svc.Get(admin, id)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Progress)
	assert.Empty(t, log.updates())

	// A failure checkpoint still ends the record in memory.
	err = f.svc.Apply(context.Background(), models.Checkpoint{VideoID: id, Status: models.FailedStatus})
	require.Error(t, err)
	v, err = f.svc.Get(admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.FailedStatus, v.Status)
	require.Len(t, log.updates(), 1)

	stored, err := f.repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.UploadingStatus, stored[0].Status)
}

func TestDeleteAs_Permissions(t *testing.T) {
	ownVideo := models.Video{ID: "own", OrgID: "org1", UploadedBy: editor.ID, Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100}
	adminVideo := models.Video{ID: "theirs", OrgID: "org1", UploadedBy: admin.ID, Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100}
	f := newFixture(t, fixtureOpts{seed: []models.Video{ownVideo, adminVideo}})
	ctx := context.Background()

	require.ErrorIs(t, f.svc.DeleteAs(ctx, viewer, "own"), models.ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteAs(ctx, editor, "theirs"), models.ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteAs(ctx, other, "own"), models.ErrNotFound)

	require.NoError(t, f.svc.DeleteAs(ctx, editor, "own"))
	require.NoError(t, f.svc.DeleteAs(ctx, admin, "theirs"))
	assert.Empty(t, f.svc.List(admin))
}

func TestList_OrderAndFilter(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seed := []models.Video{
		{ID: "old", Title: "Old", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100, CreatedAt: t0},
		{ID: "tie-a", Title: "Tie A", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100, CreatedAt: t0.Add(time.Hour)},
		{ID: "tie-b", Title: "Tie B", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100, CreatedAt: t0.Add(time.Hour)},
		{ID: "flagged", Title: "Flagged", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.FlaggedSensitivity, Progress: 100, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "failed", Title: "Broken", OrgID: "org1", Status: models.FailedStatus, Sensitivity: models.PendingSensitivity, Progress: 30, CreatedAt: t0.Add(3 * time.Hour)},
		{ID: "foreign", Title: "Foreign", OrgID: "org2", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100, CreatedAt: t0.Add(4 * time.Hour)},
	}
	f := newFixture(t, fixtureOpts{seed: seed})

	assert.Equal(t, []string{"failed", "flagged", "tie-b", "tie-a", "old"}, ids(f.svc.List(admin)))
	assert.Equal(t, []string{"failed", "flagged", "tie-b", "tie-a", "old"}, ids(f.svc.List(editor)))
	assert.Equal(t, []string{"tie-b", "tie-a", "old"}, ids(f.svc.List(viewer)))
	assert.Equal(t, []string{"foreign"}, ids(f.svc.List(other)))
	assert.Empty(t, f.svc.List(models.User{ID: "x", Role: models.AdminRole}))

	for _, v := range f.svc.List(viewer) {
		assert.Equal(t, models.CompletedStatus, v.Status)
		assert.Equal(t, models.SafeSensitivity, v.Sensitivity)
	}
}

func TestSearch(t *testing.T) {
	seed := []models.Video{
		{ID: "a", Title: "Quarterly Update", Description: "finance", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100},
		{ID: "b", Title: "Team offsite", Description: "Quarterly planning", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.FlaggedSensitivity, Progress: 100},
		{ID: "c", Title: "Launch", OrgID: "org1", Status: models.FailedStatus, Sensitivity: models.PendingSensitivity},
	}
	f := newFixture(t, fixtureOpts{seed: seed})

	assert.ElementsMatch(t, []string{"a", "b"}, ids(f.svc.Search(admin, "quarterly")))
	assert.Equal(t, []string{"b"}, ids(f.svc.Search(admin, "FLAGGED")))
	assert.Equal(t, []string{"c"}, ids(f.svc.Search(admin, "failed")))
	assert.Equal(t, []string{"a"}, ids(f.svc.Search(viewer, "quarterly")))
	assert.Len(t, f.svc.Search(admin, "   "), 3)
}

func TestGet_RespectsVisibility(t *testing.T) {
	seed := []models.Video{
		{ID: "flagged", OrgID: "org1", Status: models.CompletedStatus, Sensitivity: models.FlaggedSensitivity, Progress: 100},
	}
	f := newFixture(t, fixtureOpts{seed: seed})

	_, err := f.svc.Get(admin, "flagged")
	require.NoError(t, err)
	_, err = f.svc.Get(viewer, "flagged")
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.Get(other, "flagged")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStats(t *testing.T) {
	seed := []models.Video{
		{ID: "a", OrgID: "org1", FileSize: 10, Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100},
		{ID: "b", OrgID: "org1", FileSize: 20, Status: models.CompletedStatus, Sensitivity: models.FlaggedSensitivity, Progress: 100},
		{ID: "c", OrgID: "org1", FileSize: 5, Status: models.FailedStatus, Sensitivity: models.PendingSensitivity},
		{ID: "d", OrgID: "org2", FileSize: 99, Status: models.CompletedStatus, Sensitivity: models.SafeSensitivity, Progress: 100},
	}
	f := newFixture(t, fixtureOpts{seed: seed})

	st := f.svc.Stats(admin)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, int64(35), st.Bytes)
	assert.Equal(t, 2, st.ByStatus[models.CompletedStatus])
	assert.Equal(t, 1, st.BySensitivity[models.FlaggedSensitivity])
}

func TestPermissions(t *testing.T) {
	assert.True(t, CanUpload(admin))
	assert.True(t, CanUpload(editor))
	assert.False(t, CanUpload(viewer))
	assert.False(t, CanUpload(models.User{Role: models.AdminRole}))

	v := models.Video{OrgID: "org1", UploadedBy: editor.ID}
	assert.True(t, CanDelete(admin, v))
	assert.True(t, CanDelete(editor, v))
	assert.False(t, CanDelete(models.User{ID: "u7", OrgID: "org1", Role: models.EditorRole}, v))
	assert.False(t, CanDelete(viewer, v))
	assert.False(t, CanDelete(other, v))
}
