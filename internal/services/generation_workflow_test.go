package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/courseloom/courseloom-backend/internal/logger"
	"github.com/courseloom/courseloom-backend/internal/repos"
	"github.com/courseloom/courseloom-backend/internal/types"
)

// fakeGenerator returns deterministic content and can be told to fail a
// single method, standing in for the model client.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	failCall string
	failErr  error
	slowCall string
	slowFor  time.Duration
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{calls: map[string]int{}}
}

func (g *fakeGenerator) bump(name string) error {
	g.mu.Lock()
	g.calls[name]++
	fail := g.failCall == name
	delay := time.Duration(0)
	if g.slowCall == name {
		delay = g.slowFor
	}
	g.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return g.failErr
	}
	return nil
}

func (g *fakeGenerator) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGenerator) CourseDescription(_ context.Context, topic, _ string) (string, error) {
	if err := g.bump("CourseDescription"); err != nil {
		return "", err
	}
	return "About " + topic, nil
}

func (g *fakeGenerator) AlternativeTitles(_ context.Context, topic, _ string, n int) ([]string, error) {
	if err := g.bump("AlternativeTitles"); err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s Variant %d", topic, i)
	}
	return out, nil
}

func (g *fakeGenerator) Categories(_ context.Context, _, _ string, n int) ([]string, error) {
	if err := g.bump("Categories"); err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Category %d", i)
	}
	return out, nil
}

func (g *fakeGenerator) ChapterOutline(_ context.Context, topic, _ string, n int) ([]OutlineItem, error) {
	if err := g.bump("ChapterOutline"); err != nil {
		return nil, err
	}
	out := make([]OutlineItem, n)
	for i := range out {
		out[i] = OutlineItem{Title: fmt.Sprintf("%s Chapter %d", topic, i), Description: "outline"}
	}
	return out, nil
}

func (g *fakeGenerator) ChapterDescription(_ context.Context, _, chapterTitle, _ string) (string, error) {
	if err := g.bump("ChapterDescription"); err != nil {
		return "", err
	}
	return "About " + chapterTitle, nil
}

func (g *fakeGenerator) LessonOutline(_ context.Context, _, chapterTitle, _ string, n int) ([]OutlineItem, error) {
	if err := g.bump("LessonOutline"); err != nil {
		return nil, err
	}
	out := make([]OutlineItem, n)
	for i := range out {
		out[i] = OutlineItem{Title: fmt.Sprintf("%s Lesson %d", chapterTitle, i), Description: "outline"}
	}
	return out, nil
}

func (g *fakeGenerator) LessonDescription(_ context.Context, _, _, lessonTitle, _ string) (string, error) {
	if err := g.bump("LessonDescription"); err != nil {
		return "", err
	}
	return "About " + lessonTitle, nil
}

func (g *fakeGenerator) Activities(_ context.Context, _, _, lessonTitle, _ string, n int) ([]ActivityDraft, error) {
	if err := g.bump("Activities"); err != nil {
		return nil, err
	}
	out := make([]ActivityDraft, n)
	for i := range out {
		kind := types.ActivityKindReading
		if i%2 == 1 {
			kind = types.ActivityKindQuiz
		}
		out[i] = ActivityDraft{
			Title: fmt.Sprintf("%s Activity %d", lessonTitle, i),
			Kind:  kind,
			Body:  map[string]any{"text": "content"},
		}
	}
	return out, nil
}

func (g *fakeGenerator) CoverImage(_ context.Context, _ string) ([]byte, error) {
	if err := g.bump("CoverImage"); err != nil {
		return nil, err
	}
	return []byte("png"), nil
}

type workflowFixture struct {
	db       *gorm.DB
	gen      *fakeGenerator
	notifier *recordingNotifier
	svc      *generationService

	suggestionRepo repos.CourseSuggestionRepo
	courseRepo     repos.CourseRepo
	titleRepo      repos.CourseTitleRepo
	categoryRepo   repos.CategoryRepo
	chapterRepo    repos.ChapterRepo
	lessonRepo     repos.LessonRepo
	activityRepo   repos.ActivityRepo

	mu             sync.Mutex
	spawnedChapter []uuid.UUID
	spawnedLesson  []uuid.UUID
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.CourseSuggestion{},
		&types.Course{},
		&types.CourseTitle{},
		&types.Category{},
		&types.CourseCategory{},
		&types.Chapter{},
		&types.Lesson{},
		&types.Activity{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &workflowFixture{
		db:             db,
		gen:            newFakeGenerator(),
		notifier:       &recordingNotifier{},
		suggestionRepo: repos.NewCourseSuggestionRepo(db, log),
		courseRepo:     repos.NewCourseRepo(db, log),
		titleRepo:      repos.NewCourseTitleRepo(db, log),
		categoryRepo:   repos.NewCategoryRepo(db, log),
		chapterRepo:    repos.NewChapterRepo(db, log),
		lessonRepo:     repos.NewLessonRepo(db, log),
		activityRepo:   repos.NewActivityRepo(db, log),
	}

	prober := NewContentProber(log, f.titleRepo, f.categoryRepo, f.chapterRepo, f.lessonRepo, f.activityRepo)
	svc := NewGenerationService(
		db, log, DefaultGenerationConfig(), f.notifier, prober, f.gen, nil, nil,
		f.suggestionRepo, f.courseRepo, f.titleRepo, f.categoryRepo,
		f.chapterRepo, f.lessonRepo, f.activityRepo,
	).(*generationService)

	// Capture nested dispatches instead of running them.
	svc.spawnChapter = func(id uuid.UUID) {
		f.mu.Lock()
		f.spawnedChapter = append(f.spawnedChapter, id)
		f.mu.Unlock()
	}
	svc.spawnLesson = func(id uuid.UUID) {
		f.mu.Lock()
		f.spawnedLesson = append(f.spawnedLesson, id)
		f.mu.Unlock()
	}
	f.svc = svc
	return f
}

func (f *workflowFixture) seedSuggestion(t *testing.T, topic, language string) *types.CourseSuggestion {
	t.Helper()
	now := time.Now()
	suggestion := &types.CourseSuggestion{
		ID:        uuid.New(),
		Topic:     topic,
		Language:  language,
		Status:    types.GenerationPending,
		Metadata:  datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.suggestionRepo.Create(context.Background(), nil, []*types.CourseSuggestion{suggestion}); err != nil {
		t.Fatalf("seed suggestion: %v", err)
	}
	return suggestion
}

func (f *workflowFixture) seedChapter(t *testing.T, courseID uuid.UUID, slug string, position int, status string) *types.Chapter {
	t.Helper()
	now := time.Now()
	chapter := &types.Chapter{
		ID:               uuid.New(),
		CourseID:         courseID,
		Slug:             slug,
		Position:         position,
		Title:            slug,
		GenerationStatus: status,
		Metadata:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.chapterRepo.CreateIfAbsent(context.Background(), nil, []*types.Chapter{chapter}); err != nil {
		t.Fatalf("seed chapter: %v", err)
	}
	return chapter
}

func (f *workflowFixture) seedLesson(t *testing.T, chapterID uuid.UUID, slug string, position int, status string) *types.Lesson {
	t.Helper()
	now := time.Now()
	lesson := &types.Lesson{
		ID:               uuid.New(),
		ChapterID:        chapterID,
		Slug:             slug,
		Position:         position,
		Title:            slug,
		GenerationStatus: status,
		Metadata:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.lessonRepo.CreateIfAbsent(context.Background(), nil, []*types.Lesson{lesson}); err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	return lesson
}
