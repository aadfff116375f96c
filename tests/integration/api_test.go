package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/shortly-app/shortly/internal/config"
	"github.com/shortly-app/shortly/internal/database/postgres"
	"github.com/shortly-app/shortly/internal/service"
	"github.com/shortly-app/shortly/tests"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	api "github.com/shortly-app/shortly/internal/api/http"
	gonanoid "github.com/matoous/go-nanoid/v2"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type APITestSuite struct {
	suite.Suite
	pgCont  testcontainers.Container
	cfg     config.Postgres
	db      *sqlx.DB
	urlRepo *postgres.URLRepository
	urlSvc  *service.URLService
	server  *httptest.Server
	e       *httpexpect.Expect
}

func (suite *APITestSuite) SetupSuite() {
	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "shortly"

	var err error
	suite.pgCont, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.pgCont.Terminate(ctx); err != nil {
			suite.T().Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := suite.pgCont.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container host: %v", err)
	}

	pgPort, err := suite.pgCont.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container port: %v", err)
	}

	suite.cfg = config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}

	suite.db, err = sqlx.Connect("pgx", suite.cfg.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to connect to database: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.db.Close(); err != nil {
			suite.T().Fatalf("Failed to close database: %v", err)
		}
	})

	root, err := tests.FindProjectRoot()
	if err != nil {
		suite.T().Fatalf("Failed to get project root: %v", err)
	}

	migrationsPath := "file://" + filepath.Join(root, "migrations")

	m, err := migrate.New(migrationsPath, suite.cfg.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := m.Down(); err != nil {
			suite.T().Fatalf("Failed to rollback migrations: %v", err)
		}
	})

	suite.urlRepo = postgres.NewURLRepository(suite.db)
	suite.urlSvc = service.NewURLService(suite.urlRepo, 7)

	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	router := api.NewRouter(logger, suite.urlSvc, api.Options{})
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(suite.server.Close)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL)
}

func (suite *APITestSuite) TearDownSubTest() {
	ctx := context.Background()

	_, err := suite.db.ExecContext(ctx, `TRUNCATE TABLE urls RESTART IDENTITY CASCADE`)
	if err != nil {
		suite.T().Fatalf("Failed to clean urls table: %v", err)
	}
}

// randomURL returns a unique target URL so subtests can't collide on the
// original_url constraint.
func (suite *APITestSuite) randomURL() string {
	id, err := gonanoid.New(10)
	if err != nil {
		suite.T().Fatalf("Failed to generate url suffix: %v", err)
	}

	return "https://example.com/" + id
}

func (suite *APITestSuite) shorten(url string) *httpexpect.Object {
	return suite.e.POST("/shorten").
		WithJSON(map[string]string{"url": url}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object()
}

func (suite *APITestSuite) TestHealth() {
	suite.Run("success", func() {
		suite.e.GET("/health").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("ok\n")
	})
}

func (suite *APITestSuite) TestShortenURL() {
	suite.Run("created then reused", func() {
		url := suite.randomURL()

		created := suite.shorten(url)
		created.HasValue("original_url", url)
		created.NotContainsKey("message")

		shortURL := created.Value("short_url").String().Raw()

		reused := suite.e.POST("/shorten").
			WithJSON(map[string]string{"url": url}).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		reused.HasValue("original_url", url)
		reused.HasValue("short_url", shortURL)
		reused.ContainsKey("message")

		var count int
		err := suite.db.Get(&count, `SELECT count(*) FROM urls WHERE original_url = $1`, url)
		if err != nil {
			suite.T().Fatalf("Failed to count url records: %v", err)
		}
		suite.Equal(1, count)
	})

	suite.Run("with alias", func() {
		url := suite.randomURL()

		alias, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 12)
		if err != nil {
			suite.T().Fatalf("Failed to generate alias: %v", err)
		}

		resp := suite.e.POST("/shorten").
			WithQuery("alias", alias).
			WithJSON(map[string]string{"url": url}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object()

		resp.HasValue("short_url", suite.server.URL+"/"+alias)
	})

	suite.Run("alias exclusivity", func() {
		alias, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 12)
		if err != nil {
			suite.T().Fatalf("Failed to generate alias: %v", err)
		}

		suite.e.POST("/shorten").
			WithQuery("alias", alias).
			WithJSON(map[string]string{"url": suite.randomURL()}).
			Expect().
			Status(http.StatusCreated)

		resp := suite.e.POST("/shorten").
			WithQuery("alias", alias).
			WithJSON(map[string]string{"url": suite.randomURL()}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object()

		resp.HasValue("status", "error")
	})

	suite.Run("concurrent identical submissions", func() {
		url := suite.randomURL()
		const callers = 10

		var wg sync.WaitGroup
		results := make([]string, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				u, _, err := suite.urlSvc.ShortenURL(context.Background(), url, "")
				if err != nil {
					suite.T().Errorf("Failed to shorten url: %v", err)
					return
				}
				results[i] = u.ShortCode
			}(i)
		}
		wg.Wait()

		var count int
		err := suite.db.Get(&count, `SELECT count(*) FROM urls WHERE original_url = $1`, url)
		if err != nil {
			suite.T().Fatalf("Failed to count url records: %v", err)
		}
		suite.Equal(1, count)

		for i := 1; i < callers; i++ {
			suite.Equal(results[0], results[i])
		}
	})
}

func (suite *APITestSuite) TestResolveKey() {
	suite.Run("url not found", func() {
		resp := suite.e.GET("/nonexistent").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("redirects and counts", func() {
		url := suite.randomURL()
		suite.shorten(url)

		urlRec, err := suite.urlRepo.GetByOriginalURL(context.Background(), url)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve url record: %v", err)
		}

		suite.e.GET(fmt.Sprintf("/%s", urlRec.ShortCode)).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual(url)

		urlRec, err = suite.urlRepo.GetByKey(context.Background(), urlRec.ShortCode)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve url record: %v", err)
		}

		suite.Equal(int64(1), urlRec.AccessCount)
		suite.NotNil(urlRec.LastAccessedAt)
	})

	suite.Run("resolvable via alias or code", func() {
		url := suite.randomURL()

		alias, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 12)
		if err != nil {
			suite.T().Fatalf("Failed to generate alias: %v", err)
		}

		suite.e.POST("/shorten").
			WithQuery("alias", alias).
			WithJSON(map[string]string{"url": url}).
			Expect().
			Status(http.StatusCreated)

		urlRec, err := suite.urlRepo.GetByOriginalURL(context.Background(), url)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve url record: %v", err)
		}

		for _, key := range []string{alias, urlRec.ShortCode} {
			suite.e.GET(fmt.Sprintf("/%s", key)).
				WithRedirectPolicy(httpexpect.DontFollowRedirects).
				Expect().
				Status(http.StatusFound).
				Header("Location").IsEqual(url)
		}

		urlRec, err = suite.urlRepo.GetByKey(context.Background(), alias)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve url record: %v", err)
		}

		suite.Equal(int64(2), urlRec.AccessCount)
	})
}

func (suite *APITestSuite) TestGetURLStats() {
	suite.Run("url not found", func() {
		resp := suite.e.GET("/stats/nonexistent").
			Expect().
			Status(http.StatusNotFound).
			JSON().Object()

		resp.HasValue("status", "error")
		resp.ContainsKey("message")
	})

	suite.Run("stats are read-only", func() {
		url := suite.randomURL()
		suite.shorten(url)

		urlRec, err := suite.urlRepo.GetByOriginalURL(context.Background(), url)
		if err != nil {
			suite.T().Fatalf("Failed to retrieve url record: %v", err)
		}

		suite.e.GET(fmt.Sprintf("/%s", urlRec.ShortCode)).
			WithRedirectPolicy(httpexpect.DontFollowRedirects).
			Expect().
			Status(http.StatusFound)

		for i := 0; i < 2; i++ {
			resp := suite.e.GET(fmt.Sprintf("/stats/%s", urlRec.ShortCode)).
				Expect().
				Status(http.StatusOK).
				JSON().Object()

			stats := resp.Value("stats").Object()
			stats.HasValue("original_url", url)
			stats.HasValue("short_code", urlRec.ShortCode)
			stats.HasValue("access_count", 1)
			stats.ContainsKey("created_at")
			stats.ContainsKey("last_accessed_at")
		}
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
