package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"huanbo/internal/auth"
	"huanbo/internal/contact/handler/mocks"
	"huanbo/internal/contact/models"
	"huanbo/internal/platform/config"
	"huanbo/internal/platform/metrics"
	rlmw "huanbo/internal/ratelimit/middleware"
	"huanbo/internal/ratelimit/service/requestlimit"
	"huanbo/internal/ratelimit/store/bucket"
	"huanbo/internal/site"
	"huanbo/pkg/platform/middleware/metadata"
	"huanbo/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	logger  *slog.Logger
	siteDir string
	contact *mocks.MockService
	metrics *metrics.Metrics
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := gomock.NewController(s.T())
	s.contact = mocks.NewMockService(ctrl)

	s.siteDir = s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(s.siteDir, "index.html"), []byte("<html>环博物流</html>"), 0o644))

	s.router = s.newRouter(nil)
}

// newRouter builds a router with fresh limiter state and metrics.
func (s *RouterSuite) newRouter(trusted *metadata.TrustedProxies) http.Handler {
	limits, err := requestlimit.New(bucket.NewInMemoryBucketStore(), requestlimit.WithLogger(s.logger))
	s.Require().NoError(err)
	reg := prometheus.NewRegistry()
	s.metrics = metrics.New(reg)

	return NewRouter(Deps{
		Config: config.Server{
			Environment:    config.EnvProduction,
			AllowedOrigins: []string{"https://www.huanbo-logistics.com"},
			BodyLimitBytes: 10 << 20,
		},
		Logger:         s.logger,
		Metrics:        s.metrics,
		Gatherer:       reg,
		Limiter:        rlmw.New(rlmw.NewLimiter(limits), s.logger, rlmw.WithMessages(limits.Message)),
		Admin:          auth.NewStaticToken("s3cret"),
		Contact:        s.contact,
		Site:           site.New(s.siteDir, s.logger, time.Now()),
		TrustedProxies: trusted,
	})
}

func (s *RouterSuite) submitFrom(router http.Handler, remote, forwardedFor string) *httptest.ResponseRecorder {
	req := testutil.NewFormRequest(s.T(), "/api/contact", url.Values{"name": {"张三"}})
	req.RemoteAddr = remote
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	return testutil.DoRequest(router, req)
}

func (s *RouterSuite) TestHealthCarriesPlatformHeaders() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/health", nil))

	testutil.AssertStatusOK(s.T(), rr)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
	s.Equal("nosniff", rr.Header().Get("X-Content-Type-Options"))
	s.NotEmpty(rr.Header().Get("Strict-Transport-Security"))
	s.Equal("100", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("99", rr.Header().Get("X-RateLimit-Remaining"))
}

func (s *RouterSuite) TestStaticAssetsBypassGlobalLimit() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/", nil))

	testutil.AssertStatusOK(s.T(), rr)
	s.Empty(rr.Header().Get("X-RateLimit-Limit"))
	s.Contains(rr.Body.String(), "环博物流")
}

func (s *RouterSuite) TestAdminRoutesRequireToken() {
	for _, path := range []string{"/api/admin/stats", "/metrics"} {
		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, path, nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "未授权访问")

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr = testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	}
}

func (s *RouterSuite) TestAdminStatsWithToken() {
	s.contact.EXPECT().Stats(gomock.Any()).Return(&models.Stats{ServiceTypes: map[string]int{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"total":0,"today":0,"thisWeek":0,"serviceTypes":{}}`, rr.Body.String())
}

func (s *RouterSuite) TestMetricsWithToken() {
	testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/health", nil))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "huanbo_http_requests_total")
}

func (s *RouterSuite) TestContactLimitedToFivePerHour() {
	s.contact.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Submission{ID: "1"}, nil).Times(5)
	send := func() *httptest.ResponseRecorder {
		req := testutil.NewFormRequest(s.T(), "/api/contact", url.Values{"name": {"张三"}})
		req.RemoteAddr = "198.51.100.77:5000"
		return testutil.DoRequest(s.router, req)
	}
	for i := 0; i < 5; i++ {
		testutil.AssertStatusOK(s.T(), send())
	}
	testutil.AssertRateLimited(s.T(), send(), "表单提交过于频繁，请1小时后再试")
}

func (s *RouterSuite) TestRotatingForwardedForDoesNotEvadeLimit() {
	s.contact.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Submission{ID: "1"}, nil).Times(5)

	for i := 0; i < 5; i++ {
		rr := s.submitFrom(s.router, "203.0.113.9:5555", "198.51.100."+strconv.Itoa(i+1))
		testutil.AssertStatusOK(s.T(), rr)
	}
	rr := s.submitFrom(s.router, "203.0.113.9:5555", "198.51.100.200")
	testutil.AssertRateLimited(s.T(), rr, "表单提交过于频繁，请1小时后再试")
}

func (s *RouterSuite) TestTrustedProxyForwardsClientAddress() {
	trusted, err := metadata.ParseTrustedProxies([]string{"10.0.0.0/8"})
	s.Require().NoError(err)
	router := s.newRouter(trusted)
	s.contact.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(models.Submission{ID: "1"}, nil).Times(6)

	for i := 0; i < 5; i++ {
		testutil.AssertStatusOK(s.T(), s.submitFrom(router, "10.0.0.2:443", "1.2.3.4, 198.51.100.7"))
	}
	// Spoofed leftmost hops are ignored; the proxy-appended hop is the client.
	testutil.AssertRateLimited(s.T(), s.submitFrom(router, "10.0.0.2:443", "9.9.9.9, 198.51.100.7"),
		"表单提交过于频繁，请1小时后再试")
	testutil.AssertStatusOK(s.T(), s.submitFrom(router, "10.0.0.2:443", "198.51.100.8"))
}

func (s *RouterSuite) TestPanicIsLoggedAndObservedAs500() {
	s.contact.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.ContactForm) (models.Submission, error) {
			panic("storage exploded")
		})

	rr := s.submitFrom(s.router, "198.51.100.50:1000", "")

	testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
	s.NotContains(rr.Body.String(), "storage exploded")
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.RequestsTotal.WithLabelValues("/api/contact", http.MethodPost, "500")))
}

func (s *RouterSuite) TestHeadIndex() {
	rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodHead, "/", nil))

	testutil.AssertStatusOK(s.T(), rr)
}

func (s *RouterSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://www.huanbo-logistics.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(s.router, req)

	s.Equal("https://www.huanbo-logistics.com", rr.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = testutil.DoRequest(s.router, req)
	s.Empty(rr.Header().Get("Access-Control-Allow-Origin"))
}

func (s *RouterSuite) TestOversizedBodyRejected() {
	big := strings.Repeat("a", 11<<20)
	rr := testutil.DoRequest(s.router, testutil.NewFormRequest(s.T(), "/api/contact", url.Values{"message": {big}}))

	s.GreaterOrEqual(rr.Code, 400)
	s.NotEqual(http.StatusOK, rr.Code)
}
