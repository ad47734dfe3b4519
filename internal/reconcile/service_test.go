package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/db/models"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	pkgerrors "github.com/raktimproloy/shopify-backend/pkg/errors"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	products  map[uuid.UUID]*models.Product
	variants  map[uuid.UUID]*models.Variant
	inventory map[string]*models.InventoryRecord
	mappings  map[uuid.UUID]*models.ChannelMapping
	logs      []models.SyncLogEntry

	createProductErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:  make(map[uuid.UUID]*models.Product),
		variants:  make(map[uuid.UUID]*models.Variant),
		inventory: make(map[string]*models.InventoryRecord),
		mappings:  make(map[uuid.UUID]*models.ChannelMapping),
	}
}

func invKey(variantID uuid.UUID, channel enums.Channel) string {
	return variantID.String() + "|" + channel.String()
}

func (s *fakeStore) WithTx(tx *gorm.DB) Store { return s }

func (s *fakeStore) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if s.createProductErr != nil {
		return nil, s.createProductErr
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, fmt.Errorf("UNIQUE constraint failed: products.sku")
		}
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for i := range product.Variants {
		if product.Variants[i].ID == uuid.Nil {
			product.Variants[i].ID = uuid.New()
		}
		product.Variants[i].ProductID = product.ID
		variant := product.Variants[i]
		s.variants[variant.ID] = &variant
	}
	clone := *product
	s.products[product.ID] = &clone
	return product, nil
}

func (s *fakeStore) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	clone := *product
	s.products[product.ID] = &clone
	return product, nil
}

func (s *fakeStore) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *product
	clone.Variants = nil
	for _, variant := range s.variants {
		if variant.ProductID == id {
			clone.Variants = append(clone.Variants, *variant)
		}
	}
	return &clone, nil
}

func (s *fakeStore) MarkProductStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error {
	product, ok := s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.Status = status
	return nil
}

func (s *fakeStore) UpdateVariant(ctx context.Context, variant *models.Variant) (*models.Variant, error) {
	clone := *variant
	s.variants[variant.ID] = &clone
	return variant, nil
}

func (s *fakeStore) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	var rows []models.Variant
	for _, variant := range s.variants {
		if variant.ProductID == productID {
			rows = append(rows, *variant)
		}
	}
	return rows, nil
}

func (s *fakeStore) GetInventory(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.InventoryRecord, error) {
	record, ok := s.inventory[invKey(variantID, channel)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *fakeStore) UpsertInventory(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	record.Normalize()
	key := invKey(record.VariantID, record.Channel)
	if existing, ok := s.inventory[key]; ok {
		record.ID = existing.ID
	} else if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	clone := *record
	s.inventory[key] = &clone
	return record, nil
}

func (s *fakeStore) SetInventoryQuantities(ctx context.Context, variantID uuid.UUID, channel enums.Channel, quantity, reserved int, syncedAt time.Time) error {
	record, ok := s.inventory[invKey(variantID, channel)]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.Quantity = quantity
	record.Reserved = reserved
	record.Normalize()
	record.LastSyncAt = &syncedAt
	return nil
}

func (s *fakeStore) VariantsMissingInternalInventory(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range s.variants {
		if _, ok := s.inventory[invKey(id, enums.ChannelInternal)]; !ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) CreateMapping(ctx context.Context, mapping *models.ChannelMapping) (*models.ChannelMapping, error) {
	for _, existing := range s.mappings {
		if existing.VariantID == mapping.VariantID && existing.Channel == mapping.Channel {
			return nil, fmt.Errorf("UNIQUE constraint failed: channel_mappings.variant_id")
		}
	}
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	clone := *mapping
	s.mappings[mapping.ID] = &clone
	return mapping, nil
}

func (s *fakeStore) FindMapping(ctx context.Context, variantID uuid.UUID, channel enums.Channel) (*models.ChannelMapping, error) {
	for _, mapping := range s.mappings {
		if mapping.VariantID == variantID && mapping.Channel == channel {
			clone := *mapping
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) FindMappingsByChannelProduct(ctx context.Context, channel enums.Channel, channelProductID string) ([]models.ChannelMapping, error) {
	var rows []models.ChannelMapping
	for _, mapping := range s.mappings {
		if mapping.Channel == channel && mapping.ChannelProductID == channelProductID {
			rows = append(rows, *mapping)
		}
	}
	return rows, nil
}

func (s *fakeStore) ListMappingsByChannel(ctx context.Context, channel enums.Channel) ([]models.ChannelMapping, error) {
	var rows []models.ChannelMapping
	for _, mapping := range s.mappings {
		if mapping.Channel == channel {
			rows = append(rows, *mapping)
		}
	}
	return rows, nil
}

func (s *fakeStore) SetMappingSyncStatus(ctx context.Context, id uuid.UUID, status enums.SyncStatus, syncErr error) error {
	mapping, ok := s.mappings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mapping.SyncStatus = status
	if syncErr != nil {
		msg := syncErr.Error()
		mapping.LastError = &msg
	} else {
		mapping.LastError = nil
	}
	return nil
}

func (s *fakeStore) UpdateMappingPayload(ctx context.Context, id uuid.UUID, payload []byte) error {
	mapping, ok := s.mappings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	mapping.CachedPayload = payload
	return nil
}

func (s *fakeStore) AppendSyncLog(ctx context.Context, entry *models.SyncLogEntry) error {
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) AppendSyncLogDetails(ctx context.Context, entry *models.SyncLogEntry, details map[string]any) error {
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) lastLog(t *testing.T) models.SyncLogEntry {
	t.Helper()
	if len(s.logs) == 0 {
		t.Fatal("expected at least one sync log entry")
	}
	return s.logs[len(s.logs)-1]
}

// fakeRemote is a scriptable RemoteClient.
type fakeRemote struct {
	products      map[int64]*shopify.RemoteProduct
	inventory     map[int64]*shopify.RemoteInventory
	pushed        map[int64]int
	nextID        int64
	createErr     error
	updateErr     error
	listErr       error
	setInvErr     error
	missing       map[int64]bool
	callOrder     []string
	listOverride  []shopify.RemoteProduct
	variantNextID int64
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		products:      make(map[int64]*shopify.RemoteProduct),
		inventory:     make(map[int64]*shopify.RemoteInventory),
		pushed:        make(map[int64]int),
		missing:       make(map[int64]bool),
		nextID:        1000,
		variantNextID: 5000,
	}
}

func (r *fakeRemote) CreateProduct(ctx context.Context, payload shopify.ProductPayload) (*shopify.RemoteProduct, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	remote := &shopify.RemoteProduct{ID: r.nextID, Title: payload.Title}
	for _, vp := range payload.Variants {
		r.variantNextID++
		remote.Variants = append(remote.Variants, shopify.RemoteVariant{
			ID:    r.variantNextID,
			SKU:   vp.SKU,
			Title: vp.Title,
			Price: vp.Price,
		})
	}
	r.products[remote.ID] = remote
	return remote, nil
}

func (r *fakeRemote) UpdateProduct(ctx context.Context, productID int64, payload shopify.ProductPayload) (*shopify.RemoteProduct, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	remote, ok := r.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "remote product not found")
	}
	remote.Title = payload.Title
	return remote, nil
}

func (r *fakeRemote) GetProduct(ctx context.Context, productID int64) (*shopify.RemoteProduct, error) {
	remote, ok := r.products[productID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "remote product not found")
	}
	return remote, nil
}

func (r *fakeRemote) ListProducts(ctx context.Context, limit int) ([]shopify.RemoteProduct, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if r.listOverride != nil {
		return r.listOverride, nil
	}
	var rows []shopify.RemoteProduct
	for _, remote := range r.products {
		rows = append(rows, *remote)
	}
	return rows, nil
}

func (r *fakeRemote) GetInventory(ctx context.Context, productID, variantID int64) (*shopify.RemoteInventory, error) {
	r.callOrder = append(r.callOrder, fmt.Sprintf("pull:%d", variantID))
	inv, ok := r.inventory[variantID]
	if !ok {
		return nil, nil
	}
	clone := *inv
	return &clone, nil
}

func (r *fakeRemote) SetInventory(ctx context.Context, variantID int64, available int) error {
	if r.setInvErr != nil {
		return r.setInvErr
	}
	r.callOrder = append(r.callOrder, fmt.Sprintf("push:%d", variantID))
	r.pushed[variantID] = available
	return nil
}

func (r *fakeRemote) VariantExists(ctx context.Context, variantID int64) (bool, error) {
	return !r.missing[variantID], nil
}

// fakeTx runs the callback without a real transaction.
type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// fakeLease tracks held scopes in memory.
type fakeLease struct {
	held       map[string]bool
	acquireErr error
}

func newFakeLease() *fakeLease {
	return &fakeLease{held: make(map[string]bool)}
}

func (l *fakeLease) Acquire(ctx context.Context, scope string) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.held[scope] {
		return false, nil
	}
	l.held[scope] = true
	return true, nil
}

func (l *fakeLease) Release(ctx context.Context, scope string) error {
	delete(l.held, scope)
	return nil
}

func testEngine(t *testing.T, store *fakeStore, remote *fakeRemote, lease Lease) *Engine {
	t.Helper()
	if lease == nil {
		lease = newFakeLease()
	}
	engine, err := NewEngine(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Store:  store,
		Remote: remote,
		Tx:     fakeTx{},
		Lease:  lease,
		Config: config.SyncConfig{BatchSize: 2, DefaultImportLimit: 50},
		Now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func seedProduct(t *testing.T, store *fakeStore, sku string) *models.Product {
	t.Helper()
	product := &models.Product{
		SKU:    sku,
		Title:  "Test Hoodie",
		Status: enums.ProductStatusActive,
		Variants: []models.Variant{
			{SKU: sku + "-S", Title: "Small"},
			{SKU: sku + "-M", Title: "Medium"},
		},
	}
	if _, err := store.CreateProduct(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestDeployCreatesMappingsAndInventory(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	engine := testEngine(t, store, remote, nil)
	product := seedProduct(t, store, "HOOD-1")

	// Internal stock should seed the remote channel row.
	if _, err := store.UpsertInventory(context.Background(), &models.InventoryRecord{
		VariantID: product.Variants[0].ID,
		Channel:   enums.ChannelInternal,
		Quantity:  7,
	}); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}

	result, err := engine.Deploy(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if result.VariantCount != 2 {
		t.Fatalf("expected 2 variants deployed, got %d", result.VariantCount)
	}
	if result.RemoteProductID == "" {
		t.Fatal("expected a remote product id")
	}

	for _, variant := range product.Variants {
		mapping, err := store.FindMapping(context.Background(), variant.ID, enums.ChannelShopify)
		if err != nil {
			t.Fatalf("expected mapping for variant %s: %v", variant.SKU, err)
		}
		if mapping.SyncStatus != enums.SyncStatusSynced {
			t.Fatalf("expected synced mapping, got %s", mapping.SyncStatus)
		}
		if mapping.ChannelProductID != result.RemoteProductID {
			t.Fatalf("mapping points at %s, want %s", mapping.ChannelProductID, result.RemoteProductID)
		}
		if _, err := store.GetInventory(context.Background(), variant.ID, enums.ChannelShopify); err != nil {
			t.Fatalf("expected remote inventory row for %s: %v", variant.SKU, err)
		}
	}

	first, err := store.GetInventory(context.Background(), product.Variants[0].ID, enums.ChannelShopify)
	if err != nil {
		t.Fatalf("load channel inventory: %v", err)
	}
	if first.Quantity != 7 {
		t.Fatalf("expected channel quantity seeded from internal, got %d", first.Quantity)
	}

	entry := store.lastLog(t)
	if entry.Operation != enums.SyncOperationDeploy || entry.Status != enums.SyncLogStatusSuccess {
		t.Fatalf("unexpected audit entry: %s/%s", entry.Operation, entry.Status)
	}
}

func TestDeployRejectsSecondDeploy(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	engine := testEngine(t, store, remote, nil)
	product := seedProduct(t, store, "HOOD-2")

	if _, err := engine.Deploy(context.Background(), product.ID); err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	_, err := engine.Deploy(context.Background(), product.ID)
	if err == nil {
		t.Fatal("expected conflict on second deploy")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestDeployRemoteFailureLeavesNoMappings(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	remote.createErr = pkgerrors.New(pkgerrors.CodeRemoteChannel, "boom")
	engine := testEngine(t, store, remote, nil)
	product := seedProduct(t, store, "HOOD-3")

	if _, err := engine.Deploy(context.Background(), product.ID); err == nil {
		t.Fatal("expected deploy to fail")
	}
	if len(store.mappings) != 0 {
		t.Fatalf("expected no mappings after remote failure, got %d", len(store.mappings))
	}
	entry := store.lastLog(t)
	if entry.Status != enums.SyncLogStatusFailed {
		t.Fatalf("expected failed audit entry, got %s", entry.Status)
	}
}

func TestDeployUnknownProduct(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	_, err := engine.Deploy(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func remoteFixture(id int64, title string) shopify.RemoteProduct {
	qty := 12
	return shopify.RemoteProduct{
		ID:     id,
		Title:  title,
		Vendor: "Acme",
		Status: "active",
		Variants: []shopify.RemoteVariant{
			{ID: id*10 + 1, SKU: fmt.Sprintf("SKU-%d-A", id), Title: "A", Price: "19.99", InventoryQuantity: &qty},
			{ID: id*10 + 2, SKU: fmt.Sprintf("SKU-%d-B", id), Title: "B", Price: "24.99"},
		},
	}
}

func TestImportOneCreatesFullLocalState(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	product, err := engine.ImportOne(context.Background(), remoteFixture(42, "Imported Jacket"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(product.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(product.Variants))
	}
	if product.SKU != "SKU-42-A" {
		t.Fatalf("expected product sku from first variant, got %s", product.SKU)
	}

	for i, variant := range product.Variants {
		for _, channel := range []enums.Channel{enums.ChannelInternal, enums.ChannelShopify} {
			record, err := store.GetInventory(context.Background(), variant.ID, channel)
			if err != nil {
				t.Fatalf("expected %s inventory for variant %d: %v", channel, i, err)
			}
			if record.Available != record.Quantity-record.Reserved {
				t.Fatalf("available invariant broken: %+v", record)
			}
		}
		mapping, err := store.FindMapping(context.Background(), variant.ID, enums.ChannelShopify)
		if err != nil {
			t.Fatalf("expected mapping: %v", err)
		}
		if mapping.ChannelProductID != "42" {
			t.Fatalf("expected channel product id 42, got %s", mapping.ChannelProductID)
		}
	}

	// First variant carried quantity 12, second none.
	first, _ := store.GetInventory(context.Background(), product.Variants[0].ID, enums.ChannelInternal)
	if first.Quantity != 12 {
		t.Fatalf("expected imported quantity 12, got %d", first.Quantity)
	}
	second, _ := store.GetInventory(context.Background(), product.Variants[1].ID, enums.ChannelInternal)
	if second.Quantity != 0 {
		t.Fatalf("expected zero quantity, got %d", second.Quantity)
	}
}

func TestImportOneValidation(t *testing.T) {
	engine := testEngine(t, newFakeStore(), newFakeRemote(), nil)

	if _, err := engine.ImportOne(context.Background(), shopify.RemoteProduct{Title: "no id"}); err == nil {
		t.Fatal("expected validation error for missing id")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}

	if _, err := engine.ImportOne(context.Background(), shopify.RemoteProduct{ID: 7, Title: "   "}); err == nil {
		t.Fatal("expected validation error for blank title")
	}
}

func TestImportOneRejectsDuplicate(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	if _, err := engine.ImportOne(context.Background(), remoteFixture(9, "First")); err != nil {
		t.Fatalf("first import: %v", err)
	}
	_, err := engine.ImportOne(context.Background(), remoteFixture(9, "Again"))
	if err == nil {
		t.Fatal("expected conflict on duplicate import")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestImportOneRejectsDuplicateSKU(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	if _, err := engine.ImportOne(context.Background(), remoteFixture(9, "First")); err != nil {
		t.Fatalf("first import: %v", err)
	}

	// A different remote product carrying an already-imported SKU trips the
	// unique constraint, not the mapping check.
	clashing := remoteFixture(77, "Clashing")
	clashing.Variants[0].SKU = "SKU-9-A"
	_, err := engine.ImportOne(context.Background(), clashing)
	if err == nil {
		t.Fatal("expected conflict on duplicate sku")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
	if !strings.Contains(typed.Error(), "sku already exists locally") {
		t.Fatalf("expected sku conflict message, got %v", typed)
	}
}

func TestImportOneSynthesizesVariant(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	product, err := engine.ImportOne(context.Background(), shopify.RemoteProduct{ID: 77, Title: "Bare Product"})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(product.Variants) != 1 {
		t.Fatalf("expected synthesized variant, got %d", len(product.Variants))
	}
	if !strings.HasPrefix(product.Variants[0].SKU, "SHOPIFY-") {
		t.Fatalf("expected channel fallback sku, got %s", product.Variants[0].SKU)
	}
}

func TestImportBulkMixesOutcomes(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	engine := testEngine(t, store, remote, nil)

	// One product already imported, one new, one broken (no title).
	existing := remoteFixture(1, "Existing")
	if _, err := engine.ImportOne(context.Background(), existing); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	existing.Title = "Existing Renamed"
	remote.listOverride = []shopify.RemoteProduct{
		existing,
		remoteFixture(2, "Brand New"),
		{ID: 3, Title: ""},
	}

	summary, err := engine.ImportBulk(context.Background(), 0, false)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if summary.Total != 3 || summary.Imported != 1 || summary.Updated != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].RemoteProductID != "3" {
		t.Fatalf("expected error recorded for remote product 3, got %+v", summary.Errors)
	}

	// The update pass renamed the existing product.
	mappings, _ := store.FindMappingsByChannelProduct(context.Background(), enums.ChannelShopify, "1")
	renamed, err := store.FindProductByID(context.Background(), mappings[0].ProductID)
	if err != nil {
		t.Fatalf("load renamed product: %v", err)
	}
	if renamed.Title != "Existing Renamed" {
		t.Fatalf("expected rename applied, got %q", renamed.Title)
	}

	entry := store.lastLog(t)
	if entry.Operation != enums.SyncOperationBulkImport || entry.Status != enums.SyncLogStatusPartial {
		t.Fatalf("unexpected audit entry: %s/%s", entry.Operation, entry.Status)
	}
}

func TestImportBulkSyncDeletions(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	engine := testEngine(t, store, remote, nil)

	gone := remoteFixture(5, "Disappearing")
	if _, err := engine.ImportOne(context.Background(), gone); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	remote.listOverride = []shopify.RemoteProduct{remoteFixture(6, "Still Here")}

	summary, err := engine.ImportBulk(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("bulk import: %v", err)
	}
	if summary.Deleted != 1 {
		t.Fatalf("expected 1 soft delete, got %d", summary.Deleted)
	}

	mappings, _ := store.FindMappingsByChannelProduct(context.Background(), enums.ChannelShopify, "5")
	product, err := store.FindProductByID(context.Background(), mappings[0].ProductID)
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Status != enums.ProductStatusDeleted {
		t.Fatalf("expected soft-deleted product, got %s", product.Status)
	}
}

func TestUpdateFromRemoteSkipsUnmapped(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	applied, err := engine.UpdateFromRemote(context.Background(), remoteFixture(404, "Never Imported"))
	if err != nil {
		t.Fatalf("expected silent skip, got %v", err)
	}
	if applied {
		t.Fatal("expected applied=false for unmapped product")
	}
	if len(store.products) != 0 {
		t.Fatal("expected no local writes")
	}
}

func TestUpdateFromRemoteAppliesFields(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)

	fixture := remoteFixture(8, "Original")
	if _, err := engine.ImportOne(context.Background(), fixture); err != nil {
		t.Fatalf("seed import: %v", err)
	}

	fixture.Title = "Updated Title"
	fixture.Variants[0].Price = "39.99"
	applied, err := engine.UpdateFromRemote(context.Background(), fixture)
	if err != nil {
		t.Fatalf("update from remote: %v", err)
	}
	if !applied {
		t.Fatal("expected applied=true")
	}

	mappings, _ := store.FindMappingsByChannelProduct(context.Background(), enums.ChannelShopify, "8")
	product, err := store.FindProductByID(context.Background(), mappings[0].ProductID)
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	if product.Title != "Updated Title" {
		t.Fatalf("expected title update, got %q", product.Title)
	}

	var priced bool
	for _, variant := range product.Variants {
		if variant.Price.StringFixed(2) == "39.99" {
			priced = true
		}
	}
	if !priced {
		t.Fatal("expected variant price update applied")
	}
}

func TestUpdateToRemotePushFailureKeepsLocalChange(t *testing.T) {
	store := newFakeStore()
	remote := newFakeRemote()
	engine := testEngine(t, store, remote, nil)

	fixture := remoteFixture(11, "Pushable")
	if _, err := engine.ImportOne(context.Background(), fixture); err != nil {
		t.Fatalf("seed import: %v", err)
	}
	mappings, _ := store.FindMappingsByChannelProduct(context.Background(), enums.ChannelShopify, "11")
	productID := mappings[0].ProductID

	remote.updateErr = pkgerrors.New(pkgerrors.CodeRemoteChannel, "channel down")
	title := "Locally Renamed"
	_, err := engine.UpdateToRemote(context.Background(), productID, UpdateProductInput{Title: &title})
	if err == nil {
		t.Fatal("expected remote failure to surface")
	}

	product, loadErr := store.FindProductByID(context.Background(), productID)
	if loadErr != nil {
		t.Fatalf("load product: %v", loadErr)
	}
	if product.Title != "Locally Renamed" {
		t.Fatalf("expected local change kept, got %q", product.Title)
	}
	for _, mapping := range store.mappings {
		if mapping.SyncStatus != enums.SyncStatusFailed {
			t.Fatalf("expected mapping marked failed, got %s", mapping.SyncStatus)
		}
	}
}

func TestUpdateToRemoteUnmappedIsLocalOnly(t *testing.T) {
	store := newFakeStore()
	engine := testEngine(t, store, newFakeRemote(), nil)
	product := seedProduct(t, store, "LOCAL-1")

	title := "New Local Title"
	pushed, err := engine.UpdateToRemote(context.Background(), product.ID, UpdateProductInput{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pushed {
		t.Fatal("expected pushed=false without mappings")
	}
	reloaded, _ := store.FindProductByID(context.Background(), product.ID)
	if reloaded.Title != "New Local Title" {
		t.Fatalf("expected local update, got %q", reloaded.Title)
	}
}

var errRemoteDown = errors.New("remote down")
