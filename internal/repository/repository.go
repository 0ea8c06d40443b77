// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gestor360/commission/internal/commission"
	"github.com/gestor360/commission/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// settingAvistaRule is the settings key of the global avista rule.
const settingAvistaRule = "avista_low_margin_rule"

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSale inserts or replaces a sale with tenant isolation.
func (r *SQLRepository) SaveSale(ctx context.Context, tenantID string, sale *domain.Sale) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if sale == nil || sale.ID == "" || sale.UserID == "" || sale.ProductType == "" {
		return fmt.Errorf("%w: sale id, userId and productType are required", ErrInvalidInput)
	}
	if sale.Date.IsZero() {
		return fmt.Errorf("%w: sale date is required", ErrInvalidInput)
	}

	createdAt := sale.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sales (
			id, tenant_id, user_id, client_id, product_type,
			quantity, value_proposed, value_sold, margin_percent, payment_method,
			sale_date, sale_month,
			commission_base_total, commission_value_total, commission_rate_used,
			campaign_tag, campaign_label, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			user_id = excluded.user_id,
			client_id = excluded.client_id,
			product_type = excluded.product_type,
			quantity = excluded.quantity,
			value_proposed = excluded.value_proposed,
			value_sold = excluded.value_sold,
			margin_percent = excluded.margin_percent,
			payment_method = excluded.payment_method,
			sale_date = excluded.sale_date,
			sale_month = excluded.sale_month,
			commission_base_total = excluded.commission_base_total,
			commission_value_total = excluded.commission_value_total,
			commission_rate_used = excluded.commission_rate_used,
			campaign_tag = excluded.campaign_tag,
			campaign_label = excluded.campaign_label
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		sale.ID, tenantID, sale.UserID, sale.ClientID, sale.ProductType,
		sale.Quantity, sale.ValueProposed, sale.ValueSold, sale.MarginPercent, sale.PaymentMethod,
		sale.Date.UTC(), commission.MonthKey(sale.Date),
		sale.CommissionBaseTotal, sale.CommissionValueTotal, sale.CommissionRateUsed,
		sale.CampaignTag, sale.CampaignLabel, createdAt,
	)
	return err
}

const saleColumns = `
	id, tenant_id, user_id, client_id, product_type,
	quantity, value_proposed, value_sold, margin_percent, payment_method,
	sale_date, commission_base_total, commission_value_total, commission_rate_used,
	campaign_tag, campaign_label, created_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSale(row scanner) (*domain.Sale, error) {
	var s domain.Sale
	var clientID, payment, tag, label sql.NullString

	if err := row.Scan(
		&s.ID, &s.TenantID, &s.UserID, &clientID, &s.ProductType,
		&s.Quantity, &s.ValueProposed, &s.ValueSold, &s.MarginPercent, &payment,
		&s.Date, &s.CommissionBaseTotal, &s.CommissionValueTotal, &s.CommissionRateUsed,
		&tag, &label, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	s.ClientID = clientID.String
	s.PaymentMethod = payment.String
	s.CampaignTag = tag.String
	s.CampaignLabel = label.String
	return &s, nil
}

// GetSale retrieves a sale by ID with tenant isolation.
func (r *SQLRepository) GetSale(ctx context.Context, tenantID string, saleID string) (*domain.Sale, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + saleColumns + ` FROM sales WHERE tenant_id = ? AND id = ?`

	sale, err := scanSale(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, saleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// ListSalesByUserMonth returns a seller's sales in a YYYY-MM month, oldest first.
func (r *SQLRepository) ListSalesByUserMonth(ctx context.Context, tenantID string, userID string, month string) ([]*domain.Sale, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + saleColumns + `
		FROM sales
		WHERE tenant_id = ? AND user_id = ? AND sale_month = ?
		ORDER BY sale_date, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, userID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}

	return sales, rows.Err()
}

// SaveCommissionTable replaces the tier document of a product type.
func (r *SQLRepository) SaveCommissionTable(ctx context.Context, tenantID string, table *domain.CommissionTable) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if table == nil || table.ProductType == "" {
		return fmt.Errorf("%w: productType is required", ErrInvalidInput)
	}

	doc, err := commission.EncodeTierDocument(table.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode tiers: %w", err)
	}

	query := `
		INSERT INTO commission_tables (tenant_id, product_type, tiers, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, product_type) DO UPDATE SET
			tiers = excluded.tiers,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query), tenantID, table.ProductType, string(doc), time.Now().UTC())
	return err
}

// GetCommissionTable retrieves the tiers of a product type. Documents
// stored in the older flat shapes are read as well.
func (r *SQLRepository) GetCommissionTable(ctx context.Context, tenantID string, productType string) (*domain.CommissionTable, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT tiers FROM commission_tables WHERE tenant_id = ? AND product_type = ?`

	var doc string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, productType).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rules, err := commission.DecodeTierDocument([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tiers of %s: %w", productType, err)
	}

	return &domain.CommissionTable{
		TenantID:    tenantID,
		ProductType: productType,
		Rules:       rules,
	}, nil
}

// ListProductTypes returns the product types that have a commission table.
func (r *SQLRepository) ListProductTypes(ctx context.Context, tenantID string) ([]string, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT product_type FROM commission_tables WHERE tenant_id = ? ORDER BY product_type`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var pt string
		if err := rows.Scan(&pt); err != nil {
			return nil, err
		}
		types = append(types, pt)
	}

	return types, rows.Err()
}

// SaveCampaign inserts or updates a campaign with tenant isolation.
func (r *SQLRepository) SaveCampaign(ctx context.Context, tenantID string, c *domain.Campaign) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: campaign id is required", ErrInvalidInput)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown campaign type %q", ErrInvalidInput, c.Type)
	}

	rules, err := json.Marshal(c.Rules)
	if err != nil {
		return fmt.Errorf("failed to encode campaign rules: %w", err)
	}

	now := time.Now().UTC()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	query := `
		INSERT INTO campaigns (
			id, tenant_id, name, type, active, start_month, end_month,
			rules, eligibility, goal_target, deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			active = excluded.active,
			start_month = excluded.start_month,
			end_month = excluded.end_month,
			rules = excluded.rules,
			eligibility = excluded.eligibility,
			goal_target = excluded.goal_target,
			deleted = 0,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		c.ID, tenantID, c.Name, string(c.Type), boolInt(c.Active), c.StartMonth, c.EndMonth,
		string(rules), c.Eligibility, c.GoalTarget, createdAt, now,
	)
	return err
}

const campaignColumns = `
	id, tenant_id, name, type, active, start_month, end_month,
	rules, eligibility, goal_target, created_at, updated_at
`

func scanCampaign(row scanner) (*domain.Campaign, error) {
	var c domain.Campaign
	var ctype, rules string
	var endMonth, eligibility sql.NullString
	var active int

	if err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &ctype, &active, &c.StartMonth, &endMonth,
		&rules, &eligibility, &c.GoalTarget, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.Type = domain.CampaignType(ctype)
	c.Active = active == 1
	c.EndMonth = endMonth.String
	c.Eligibility = eligibility.String
	if err := json.Unmarshal([]byte(rules), &c.Rules); err != nil {
		return nil, fmt.Errorf("failed to parse campaign rules for %s: %w", c.ID, err)
	}
	return &c, nil
}

// GetCampaign retrieves a campaign by ID with tenant isolation.
func (r *SQLRepository) GetCampaign(ctx context.Context, tenantID string, campaignID string) (*domain.Campaign, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE tenant_id = ? AND id = ? AND deleted = 0`

	c, err := scanCampaign(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, campaignID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns returns all non-deleted campaigns in creation order. The
// order matters: overlays use the first campaign of each type.
func (r *SQLRepository) ListCampaigns(ctx context.Context, tenantID string) ([]*domain.Campaign, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE tenant_id = ? AND deleted = 0
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}

	return campaigns, rows.Err()
}

// DeleteCampaign soft-deletes a campaign by setting deleted = 1.
func (r *SQLRepository) DeleteCampaign(ctx context.Context, tenantID string, campaignID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE campaigns
		SET deleted = 1, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND deleted = 0
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, campaignID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAvistaRuleConfig stores the avista rule in the settings table.
func (r *SQLRepository) SaveAvistaRuleConfig(ctx context.Context, tenantID string, cfg *domain.AvistaRuleConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidInput)
	}

	value, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return r.saveSetting(ctx, tenantID, settingAvistaRule, string(value))
}

// GetAvistaRuleConfig retrieves the avista rule of a tenant.
func (r *SQLRepository) GetAvistaRuleConfig(ctx context.Context, tenantID string) (*domain.AvistaRuleConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	value, err := r.getSetting(ctx, tenantID, settingAvistaRule)
	if err != nil {
		return nil, err
	}

	var cfg domain.AvistaRuleConfig
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse avista rule: %w", err)
	}
	return &cfg, nil
}

func (r *SQLRepository) saveSetting(ctx context.Context, tenantID, key, value string) error {
	query := `
		INSERT INTO settings (tenant_id, setting_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, setting_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, key, value, time.Now().UTC())
	return err
}

func (r *SQLRepository) getSetting(ctx context.Context, tenantID, key string) (string, error) {
	query := `SELECT value FROM settings WHERE tenant_id = ? AND setting_key = ?`

	var value string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SaveGoalTarget sets a seller's monthly target.
func (r *SQLRepository) SaveGoalTarget(ctx context.Context, tenantID string, goal *domain.GoalTarget) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if goal == nil || goal.UserID == "" || !commission.ValidMonth(goal.Month) {
		return fmt.Errorf("%w: userId and a YYYY-MM month are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO sales_goals (tenant_id, user_id, month, target, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, month) DO UPDATE SET
			target = excluded.target,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, goal.UserID, goal.Month, goal.Target, time.Now().UTC())
	return err
}

// GetGoalTarget retrieves a seller's monthly target.
func (r *SQLRepository) GetGoalTarget(ctx context.Context, tenantID string, userID string, month string) (*domain.GoalTarget, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT target FROM sales_goals WHERE tenant_id = ? AND user_id = ? AND month = ?`

	goal := &domain.GoalTarget{TenantID: tenantID, UserID: userID, Month: month}
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, userID, month).Scan(&goal.Target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
