package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ajo_ledger/internal/config"
	"ajo_ledger/internal/models"
	"ajo_ledger/internal/payments"
)

// recordingMailer captures notices instead of delivering them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []string // "to|subject"
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

// mockGateway is a scriptable payment gateway.
type mockGateway struct {
	mu            sync.Mutex
	charges       map[string]*payments.ChargeResult
	notFoundOnce  map[string]bool // first VerifyCharge returns ErrChargeNotFound
	disburseFail  bool
	disburseCalls int
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		charges:      make(map[string]*payments.ChargeResult),
		notFoundOnce: make(map[string]bool),
	}
}

func (g *mockGateway) InitializeCharge(amount float64, email, reference string, metadata map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges[reference] = &payments.ChargeResult{
		Reference: reference,
		Status:    "success",
		Amount:    amount,
		Metadata:  metadata,
	}
	return "https://checkout.test/" + reference, nil
}

func (g *mockGateway) VerifyCharge(reference string) (*payments.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notFoundOnce[reference] {
		g.notFoundOnce[reference] = false
		return nil, payments.ErrChargeNotFound
	}
	charge, ok := g.charges[reference]
	if !ok {
		return nil, payments.ErrChargeNotFound
	}
	return charge, nil
}

func (g *mockGateway) Disburse(amount float64, bankCode, accountNumber, narration string) (*payments.TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disburseCalls++
	if g.disburseFail {
		return &payments.TransferResult{Success: false}, nil
	}
	return &payments.TransferResult{
		Success:           true,
		TransferReference: fmt.Sprintf("TRF-%d", g.disburseCalls),
	}, nil
}

func (g *mockGateway) ListBanks() ([]payments.Bank, error) {
	return []payments.Bank{{Name: "Test Bank", Code: "001"}}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Concurrent writers queue on the file lock instead of failing fast.
	dsn := filepath.Join(t.TempDir(), "ledger.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingMailer, *mockGateway) {
	t.Helper()
	db := newTestDB(t)
	mailer := &recordingMailer{}
	gateway := newMockGateway()
	return New(db, mailer, gateway), db, mailer, gateway
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: name + "@example.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return &user
}

type testGroup struct {
	Group       *models.Group
	Admin       *models.User
	Members     []*models.User // admin first, then join order
	Memberships []*models.Membership
}

// seedGroup builds a group with n approved members (admin included) and,
// unless withoutAccounts, a linked payout account for each.
func seedGroup(t *testing.T, svc *Service, db *gorm.DB, n int, amount float64, withoutAccounts bool) *testGroup {
	t.Helper()

	admin := createUser(t, db, fmt.Sprintf("admin%d", n))
	group, err := svc.CreateGroup(admin.ID, GroupInput{
		Name:               "Test Ajo",
		ContributionAmount: amount,
		TotalMembers:       n,
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	tg := &testGroup{Group: group, Admin: admin, Members: []*models.User{admin}}
	for i := 1; i < n; i++ {
		member := createUser(t, db, fmt.Sprintf("member%d_%d", n, i))
		membership, err := svc.JoinGroup(member.ID, group.InviteCode)
		if err != nil {
			t.Fatalf("JoinGroup failed: %v", err)
		}
		if _, err := svc.ReviewMembership(admin.ID, group.ID, membership.ID, true); err != nil {
			t.Fatalf("ReviewMembership failed: %v", err)
		}
		tg.Members = append(tg.Members, member)
	}

	for _, user := range tg.Members {
		var membership models.Membership
		if err := db.Where("user_id = ? AND group_id = ?", user.ID, group.ID).First(&membership).Error; err != nil {
			t.Fatalf("membership lookup failed: %v", err)
		}
		if !withoutAccounts {
			account, err := svc.CreatePayoutAccount(user.ID, "Test Bank", "001", fmt.Sprintf("00000000%d", user.ID), user.Name, true)
			if err != nil {
				t.Fatalf("CreatePayoutAccount failed: %v", err)
			}
			if _, err := svc.LinkPayoutAccount(user.ID, group.ID, account.ID); err != nil {
				t.Fatalf("LinkPayoutAccount failed: %v", err)
			}
			if err := db.Where("user_id = ? AND group_id = ?", user.ID, group.ID).First(&membership).Error; err != nil {
				t.Fatalf("membership reload failed: %v", err)
			}
		}
		tg.Memberships = append(tg.Memberships, &membership)
	}
	return tg
}

func reloadCycle(t *testing.T, db *gorm.DB, cycleID uint) *models.Cycle {
	t.Helper()
	var cycle models.Cycle
	if err := db.First(&cycle, cycleID).Error; err != nil {
		t.Fatalf("cycle reload failed: %v", err)
	}
	return &cycle
}

func reloadGroup(t *testing.T, db *gorm.DB, groupID uint) *models.Group {
	t.Helper()
	var group models.Group
	if err := db.First(&group, groupID).Error; err != nil {
		t.Fatalf("group reload failed: %v", err)
	}
	return &group
}

func almostEqual(a, b float64) bool {
	diff := a - b
	return diff < 0.005 && diff > -0.005
}
