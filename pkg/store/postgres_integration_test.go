//go:build integration

package store_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ryan-Har/truckbook"
	"github.com/Ryan-Har/truckbook/internal/logutil"
	"github.com/Ryan-Har/truckbook/pkg/credential"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/Ryan-Har/truckbook/pkg/store"
)

var _ = Describe("accounts on PostgreSQL", Ordered, func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
		tb        *truckbook.TruckBook
	)

	BeforeAll(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Minute)

		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("truckbook_test"),
			postgres.WithUsername("truckbook"),
			postgres.WithPassword("truckbook"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		pool, err = pgxpool.New(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())

		tb, err = truckbook.New(
			truckbook.WithPostgresPool(pool, connStr),
			truckbook.WithLogger(logutil.NoopLogger()),
			truckbook.WithHasher(passwd.NewChain(&passwd.Bcrypt{Cost: bcrypt.MinCost})),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(tb.Store.DBType()).To(Equal(store.DBTypePostgres))
	})

	AfterAll(func() {
		if tb != nil {
			_ = tb.Close()
		}
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(context.Background())
		}
		cancel()
	})

	It("reports ready", func() {
		Expect(tb.Store.Ping(ctx)).To(Succeed())
	})

	It("registers and authenticates with a normalized email", func() {
		id, err := tb.Authority.Register(ctx, "  Driver@Fleet.IO ", "diesel99")
		Expect(err).NotTo(HaveOccurred())

		res, err := tb.Authority.Authenticate(ctx, "driver@fleet.io", "diesel99")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.State).To(Equal(credential.Authenticated))
		Expect(res.AccountID).To(Equal(id))
	})

	It("rejects a duplicate through the unique index", func() {
		_, err := tb.Authority.Register(ctx, "DRIVER@fleet.io", "other-pass")
		var dup *models.DuplicateAccountError
		Expect(errors.As(err, &dup)).To(BeTrue())
	})

	It("lets exactly one of many concurrent signups win", func() {
		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := tb.Authority.Register(ctx, "race@fleet.io", "diesel99")
				mu.Lock()
				defer mu.Unlock()
				var dup *models.DuplicateAccountError
				switch {
				case err == nil:
					successes++
				case errors.As(err, &dup):
					dupes++
				}
			}()
		}
		wg.Wait()
		Expect(successes).To(Equal(1))
		Expect(dupes).To(Equal(n - 1))
	})

	It("gives unknown accounts and wrong passwords the same answer", func() {
		_, errUnknown := tb.Authority.Authenticate(ctx, "ghost@fleet.io", "diesel99")
		_, errWrong := tb.Authority.Authenticate(ctx, "driver@fleet.io", "petrol00")
		Expect(errUnknown).To(HaveOccurred())
		Expect(errWrong).To(HaveOccurred())
		Expect(errUnknown.Error()).To(Equal(errWrong.Error()))
		Expect(errUnknown.Error()).To(Equal(models.PublicCredentialsMessage))
	})

	It("serves the login form flow against postgres sessions", func() {
		form := url.Values{"email": {"driver@fleet.io"}, "password": {"diesel99"}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		tb.Handler().ServeHTTP(rr, req)

		Expect(rr.Code).To(Equal(http.StatusSeeOther))
		var session *http.Cookie
		for _, c := range rr.Result().Cookies() {
			if c.Name == "session_token" {
				session = c
			}
		}
		Expect(session).NotTo(BeNil())

		req = httptest.NewRequest(http.MethodGet, "/home", nil)
		req.AddCookie(session)
		rr = httptest.NewRecorder()
		tb.Handler().ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring("driver@fleet.io"))

		Expect(tb.Authority.Logout(ctx, session.Value)).To(Succeed())
		Expect(tb.Authority.Logout(ctx, session.Value)).To(Succeed())

		req = httptest.NewRequest(http.MethodGet, "/home", nil)
		req.AddCookie(session)
		rr = httptest.NewRecorder()
		tb.Handler().ServeHTTP(rr, req)
		Expect(rr.Code).To(Equal(http.StatusSeeOther))
		Expect(rr.Header().Get("Location")).To(Equal("/login"))
	})
})
