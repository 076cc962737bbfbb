package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/mail"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var pdfHeader = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, message mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return m.err
}

type repositoryFixture struct {
	repository *Repository
	database   *gorm.DB
	blobs      *blob.MemoryStore
	cache      *cache.QueryCache
	mailer     *recordingMailer
}

func newRepositoryFixture(testContext *testing.T) repositoryFixture {
	testContext.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(testContext.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(Models()...); err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}
	blobs := blob.NewMemory("https://cdn.example.com")
	queryCache := cache.New(cache.Config{TTL: time.Hour})
	mailer := &recordingMailer{}
	repository, err := NewRepository(RepositoryConfig{
		Database:   database,
		Blobs:      blobs,
		Cache:      queryCache,
		Mailer:     mailer,
		OwnerEmail: "owner@example.com",
		Clock:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build repository: %v", err)
	}
	return repositoryFixture{repository: repository, database: database, blobs: blobs, cache: queryCache, mailer: mailer}
}

func TestNewRepositoryRequiresDependencies(testContext *testing.T) {
	_, err := NewRepository(RepositoryConfig{Blobs: blob.NewMemory("")})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "content.repository.new.missing_database" {
		testContext.Fatalf("expected missing database error, got %v", err)
	}
}

func TestRecordStrategyLifecycle(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)
	strategy := fixture.repository.Skills()

	id, err := strategy.Create(ctx, &Skill{ID: "tmp-1", Order: 1, Name: "Go", Category: "language", IconURL: "https://example.com/go.svg"})
	if err != nil {
		testContext.Fatalf("create failed: %v", err)
	}
	if id == "" || id == "tmp-1" {
		testContext.Fatalf("expected store-assigned id, got %q", id)
	}
	if _, err := strategy.Create(ctx, &Skill{Order: 2, Name: "Rust", Category: "language", IconURL: "https://example.com/rust.svg"}); err != nil {
		testContext.Fatalf("second create failed: %v", err)
	}

	if err := strategy.UpdateOrder(ctx, id, 3); err != nil {
		testContext.Fatalf("update order failed: %v", err)
	}
	skills, err := strategy.List(ctx)
	if err != nil {
		testContext.Fatalf("list failed: %v", err)
	}
	if len(skills) != 2 || skills[0].Name != "Rust" || skills[1].Name != "Go" {
		testContext.Fatalf("expected listing ordered by sort order, got %+v", skills)
	}

	updated := skills[1].Clone()
	updated.Name = "Golang"
	if err := strategy.Update(ctx, updated); err != nil {
		testContext.Fatalf("update failed: %v", err)
	}
	reloaded, err := strategy.Get(ctx, id)
	if err != nil || reloaded.Name != "Golang" || reloaded.Order != 3 {
		testContext.Fatalf("expected updated skill, got %+v (%v)", reloaded, err)
	}

	if err := strategy.Delete(ctx, id); err != nil {
		testContext.Fatalf("delete failed: %v", err)
	}
	_, err = strategy.Get(ctx, id)
	if !errors.Is(err, store.ErrNotFound) {
		testContext.Fatalf("expected not found after delete, got %v", err)
	}
	if err := strategy.UpdateOrder(ctx, id, 1); !errors.Is(err, store.ErrNotFound) {
		testContext.Fatalf("expected not found updating a deleted record, got %v", err)
	}
}

func TestProjectStrategyRoundTripsNestedLists(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)
	strategy := fixture.repository.Projects()

	project := validProject()
	project.Order = 1
	project.Featured = true
	project.TechBadgeIDs = []string{"badge-go", "badge-sql"}
	id, err := strategy.Create(ctx, project)
	if err != nil {
		testContext.Fatalf("create failed: %v", err)
	}
	loaded, err := fixture.repository.GetProject(ctx, id)
	if err != nil {
		testContext.Fatalf("get failed: %v", err)
	}
	if len(loaded.Links) != 1 || loaded.Links[0].Kind != "github" || len(loaded.TechBadgeIDs) != 2 || !loaded.Featured {
		testContext.Fatalf("nested lists did not round trip: %+v", loaded)
	}

	_, err = fixture.repository.GetProject(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		testContext.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogServesFromCacheUntilInvalidated(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)
	strategy := fixture.repository.Badges()

	if _, err := strategy.Create(ctx, &TechBadge{Order: 1, Name: "Go", IconURL: "https://example.com/go.svg"}); err != nil {
		testContext.Fatalf("create failed: %v", err)
	}
	first, err := fixture.repository.ListBadges(ctx)
	if err != nil || len(first) != 1 {
		testContext.Fatalf("expected one badge, got %d (%v)", len(first), err)
	}

	if _, err := strategy.Create(ctx, &TechBadge{Order: 2, Name: "PostgreSQL", IconURL: "https://example.com/pg.svg"}); err != nil {
		testContext.Fatalf("create failed: %v", err)
	}
	cached, _ := fixture.repository.ListBadges(ctx)
	if len(cached) != 1 {
		testContext.Fatalf("expected cached listing, got %d badges", len(cached))
	}

	fixture.cache.InvalidatePrefix(cache.CollectionPrefix(CollectionBadges))
	fresh, _ := fixture.repository.ListBadges(ctx)
	if len(fresh) != 2 {
		testContext.Fatalf("expected fresh listing after invalidation, got %d badges", len(fresh))
	}
}

func TestSearchBadgesFiltersAndLimits(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)
	strategy := fixture.repository.Badges()
	for index, name := range []string{"Go", "Google Cloud", "Rust", "MongoDB"} {
		if _, err := strategy.Create(ctx, &TechBadge{Order: index + 1, Name: name, IconURL: "https://example.com/icon.svg"}); err != nil {
			testContext.Fatalf("create failed: %v", err)
		}
	}

	matches, err := fixture.repository.SearchBadges(ctx, "go", 10)
	if err != nil {
		testContext.Fatalf("search failed: %v", err)
	}
	if len(matches) != 3 {
		testContext.Fatalf("expected three case-insensitive matches, got %+v", matches)
	}
	limited, _ := fixture.repository.SearchBadges(ctx, "go", 1)
	if len(limited) != 1 || limited[0].Name != "Go" {
		testContext.Fatalf("expected first match only, got %+v", limited)
	}
	all, _ := fixture.repository.SearchBadges(ctx, "  ", 2)
	if len(all) != 2 {
		testContext.Fatalf("expected blank term to list in order with limit, got %d", len(all))
	}
}

func TestListProjectsFeaturedOnly(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)
	strategy := fixture.repository.Projects()
	for index, featured := range []bool{false, true, true} {
		project := validProject()
		project.Order = index + 1
		project.Title = fmt.Sprintf("Project %d", index+1)
		project.Featured = featured
		if _, err := strategy.Create(ctx, project); err != nil {
			testContext.Fatalf("create failed: %v", err)
		}
	}
	featured, err := fixture.repository.ListProjects(ctx, ProjectQuery{FeaturedOnly: true, Limit: 1})
	if err != nil {
		testContext.Fatalf("list failed: %v", err)
	}
	if len(featured) != 1 || featured[0].Title != "Project 2" {
		testContext.Fatalf("expected first featured project, got %+v", featured)
	}
	all, _ := fixture.repository.ListProjects(ctx, ProjectQuery{})
	if len(all) != 3 {
		testContext.Fatalf("expected every project, got %d", len(all))
	}
}

func TestUploadIconStoresAcceptedImage(testContext *testing.T) {
	fixture := newRepositoryFixture(testContext)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	icon, err := fixture.repository.UploadIcon(context.Background(), blob.File{Name: "go.png", Body: bytes.NewReader(png)})
	if err != nil {
		testContext.Fatalf("upload failed: %v", err)
	}
	if icon.BlobID == "" || !strings.HasPrefix(icon.URL, "https://cdn.example.com/") {
		testContext.Fatalf("unexpected uploaded icon %+v", icon)
	}

	_, err = fixture.repository.UploadIcon(context.Background(), blob.File{Name: "go.exe", Body: bytes.NewReader(png)})
	if !errors.Is(err, blob.ErrExtensionNotAllowed) {
		testContext.Fatalf("expected extension rejection, got %v", err)
	}
}

func TestReplaceCVDeletesPreviousBlob(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)

	if _, err := fixture.repository.CurrentCV(ctx); !errors.Is(err, ErrNoCV) {
		testContext.Fatalf("expected ErrNoCV before upload, got %v", err)
	}

	first, err := fixture.repository.ReplaceCV(ctx, blob.File{Name: "cv.pdf", Body: bytes.NewReader(pdfHeader)})
	if err != nil {
		testContext.Fatalf("first upload failed: %v", err)
	}
	second, err := fixture.repository.ReplaceCV(ctx, blob.File{Name: "cv-2026.pdf", Body: bytes.NewReader(pdfHeader)})
	if err != nil {
		testContext.Fatalf("second upload failed: %v", err)
	}
	if fixture.blobs.Len() != 1 {
		testContext.Fatalf("expected the previous blob to be deleted, %d blobs remain", fixture.blobs.Len())
	}
	if _, _, err := fixture.blobs.Open(ctx, blob.BucketDocuments, first.BlobID); !errors.Is(err, blob.ErrNotFound) {
		testContext.Fatalf("expected first blob to be gone, got %v", err)
	}

	current, err := fixture.repository.CurrentCV(ctx)
	if err != nil {
		testContext.Fatalf("current cv failed: %v", err)
	}
	if current.BlobID != second.BlobID || current.FileName != "cv-2026.pdf" {
		testContext.Fatalf("expected current cv to be the second upload, got %+v", current)
	}
}

func TestSubmitContactStoresAndNotifies(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)

	_, err := fixture.repository.SubmitContact(ctx, ContactInput{Name: "Ada", Email: "not-an-email", Message: "hello"})
	if err == nil || !strings.Contains(err.Error(), "email must be a valid email address") {
		testContext.Fatalf("expected email validation error, got %v", err)
	}

	fixture.mailer.err = errors.New("smtp down")
	message, err := fixture.repository.SubmitContact(ctx, ContactInput{Name: " Ada ", Email: "ada@example.com", Message: "Let's talk"})
	if err != nil {
		testContext.Fatalf("submit failed: %v", err)
	}
	if message.ID == "" || message.Name != "Ada" {
		testContext.Fatalf("unexpected stored message %+v", message)
	}
	if len(fixture.mailer.messages) != 1 || fixture.mailer.messages[0].To != "owner@example.com" {
		testContext.Fatalf("expected owner notification, got %+v", fixture.mailer.messages)
	}
	var stored int64
	fixture.database.Model(&ContactMessageRow{}).Count(&stored)
	if stored != 1 {
		testContext.Fatalf("expected message to be stored despite mail failure, got %d", stored)
	}
}

const seedYAML = `
skills:
  - name: Go
    category: language
    icon_url: https://example.com/go.svg
badges:
  - name: Go
    icon_url: https://example.com/go.svg
  - name: SQLite
    icon_url: https://example.com/sqlite.svg
projects:
  - title: Portfolio
    description: This site
    featured: true
    links:
      - kind: github
        url: https://github.com/example/portfolio
    images:
      - url: https://example.com/portfolio.png
        alt: home page
    badges: [go, SQLite]
`

func TestSeedPopulatesEmptyCollectionsOnce(testContext *testing.T) {
	ctx := context.Background()
	fixture := newRepositoryFixture(testContext)

	document, err := DecodeSeed(strings.NewReader(seedYAML))
	if err != nil {
		testContext.Fatalf("decode failed: %v", err)
	}
	report, err := fixture.repository.Seed(ctx, document)
	if err != nil {
		testContext.Fatalf("seed failed: %v", err)
	}
	if report.Created[CollectionSkills] != 1 || report.Created[CollectionBadges] != 2 || report.Created[CollectionProjects] != 1 {
		testContext.Fatalf("unexpected report %+v", report)
	}
	projects, _ := fixture.repository.ListProjects(ctx, ProjectQuery{})
	if len(projects) != 1 || len(projects[0].TechBadgeIDs) != 2 || projects[0].Order != 1 {
		testContext.Fatalf("expected project with resolved badges, got %+v", projects)
	}

	again, err := fixture.repository.Seed(ctx, document)
	if err != nil {
		testContext.Fatalf("second seed failed: %v", err)
	}
	if len(again.Skipped) != 3 || len(again.Created) != 0 {
		testContext.Fatalf("expected populated collections to be skipped, got %+v", again)
	}
}

func TestDecodeSeedRejectsUnknownKeys(testContext *testing.T) {
	_, err := DecodeSeed(strings.NewReader("skills:\n  - name: Go\n    colour: blue\n"))
	if err == nil {
		testContext.Fatalf("expected unknown key to be rejected")
	}
}
