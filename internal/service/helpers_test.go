package service

import (
	"context"
	"sync"
	"testing"

	"stockino/internal/database/dbtest"
	"stockino/internal/model"
	"stockino/internal/repository"
	"stockino/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordedEvent struct {
	orgID   string
	payload string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) PublishToOrganization(orgID string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{orgID: orgID, payload: string(payload)})
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db        *gorm.DB
	publisher *fakePublisher

	profiles  repository.ProfileRepository
	orgsRepo  repository.OrganizationRepository
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	audits    repository.AuditRepository

	tenant   TenantService
	orgs     OrganizationService
	auth     AuthService
	members  MemberService
	product  ProductService
	sale     SaleService
	receipt  ReceiptService
	report   ReportService
	auditSvc AuditService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	e := &testEnv{db: db, publisher: &fakePublisher{}}

	tx := repository.NewTransactionManager(db)
	e.profiles = repository.NewProfileRepository(db)
	e.orgsRepo = repository.NewOrganizationRepository(db)
	e.products = repository.NewProductRepository(db)
	e.movements = repository.NewStockMovementRepository(db)
	e.audits = repository.NewAuditRepository(db)
	sales := repository.NewSaleRepository(db)
	receipts := repository.NewReceiptRepository(db)
	seq := repository.NewSequenceRepository(db)
	reports := repository.NewReportRepository(db)

	settings := LedgerSettings{LowStockThreshold: 10, StickyArchived: true}
	objects := storage.NewLocalStorage(t.TempDir(), "http://localhost:8080")

	e.tenant = NewTenantService(e.profiles)
	e.orgs = NewOrganizationService(e.orgsRepo, e.profiles, e.audits, tx, e.tenant)
	e.auth = NewAuthService(e.profiles, e.orgsRepo, tx, e.orgs, []byte("test-secret"))
	e.members = NewMemberService(e.profiles, e.audits, tx, e.tenant)
	e.product = NewProductService(e.products, e.movements, e.audits, tx, e.tenant, objects, settings, e.publisher)
	e.sale = NewSaleService(sales, e.products, e.movements, e.audits, tx, e.tenant, settings, e.publisher)
	e.receipt = NewReceiptService(receipts, e.products, e.movements, seq, e.orgsRepo, e.audits, tx, e.tenant, settings, decimal.NewFromInt(20), e.publisher)
	e.report = NewReportService(e.products, sales, reports, e.orgsRepo, e.tenant)
	e.auditSvc = NewAuditService(e.audits, e.tenant)
	return e
}

// seedTenant creates an organization with one member of the given role.
func (e *testEnv) seedTenant(t *testing.T, orgName string, role model.Role) Tenant {
	t.Helper()
	ctx := context.Background()
	org := &model.Organization{Name: orgName, Code: randomCode(t)}
	if err := e.orgsRepo.Create(ctx, org); err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return e.seedMember(t, org.ID, role)
}

func (e *testEnv) seedMember(t *testing.T, orgID uuid.UUID, role model.Role) Tenant {
	t.Helper()
	p := &model.Profile{OrganizationID: &orgID, Email: uuid.NewString() + "@example.com", Role: role}
	if err := e.profiles.Create(context.Background(), p); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return Tenant{ProfileID: p.ID, OrganizationID: &orgID, Role: role}
}

func (e *testEnv) seedProduct(t *testing.T, tenant Tenant, name string, qty int, price int64) *model.Product {
	t.Helper()
	pr := decimal.NewFromInt(price)
	p := &model.Product{
		OrganizationID: tenant.OrgID(),
		Name:           name,
		Quantity:       qty,
		Price:          &pr,
		Status:         model.DeriveStatus(qty, 10),
	}
	if err := e.products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *testEnv) quantity(t *testing.T, id uuid.UUID) (int, model.ProductStatus) {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	return p.Quantity, p.Status
}

func randomCode(t *testing.T) string {
	t.Helper()
	code, err := RandomOrganizationCode()
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	return code
}

func line(p *model.Product, qty int, price int64) LineItemRequest {
	return LineItemRequest{ProductID: p.ID.String(), Quantity: qty, UnitPrice: decimal.NewFromInt(price)}
}

// dropTables removes tables to simulate a deployment where they were never provisioned.
func (e *testEnv) dropTables(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := e.db.Exec("DROP TABLE " + name).Error; err != nil {
			t.Fatalf("drop %s: %v", name, err)
		}
	}
}

func intPtr(n int) *int {
	return &n
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return id
}
