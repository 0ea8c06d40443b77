package repository

// Schema definitions for the Gestor360 commission store.
// Compatible with both SQLite and PostgreSQL.

const schemaSales = `
CREATE TABLE IF NOT EXISTS sales (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    client_id TEXT,
    product_type TEXT NOT NULL,
    quantity REAL NOT NULL,
    value_proposed REAL NOT NULL,
    value_sold REAL NOT NULL,
    margin_percent REAL NOT NULL,
    payment_method TEXT,
    sale_date TIMESTAMP NOT NULL,
    sale_month TEXT NOT NULL,
    commission_base_total REAL NOT NULL DEFAULT 0,
    commission_value_total REAL NOT NULL DEFAULT 0,
    commission_rate_used REAL NOT NULL DEFAULT 0,
    campaign_tag TEXT,
    campaign_label TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_sales_user_month ON sales(tenant_id, user_id, sale_month);
`

// schemaCommissionTables stores one tier document (JSON) per product type.
const schemaCommissionTables = `
CREATE TABLE IF NOT EXISTS commission_tables (
    tenant_id TEXT NOT NULL,
    product_type TEXT NOT NULL,
    tiers TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, product_type)
);
`

const schemaCampaigns = `
CREATE TABLE IF NOT EXISTS campaigns (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    start_month TEXT NOT NULL,
    end_month TEXT,
    rules TEXT NOT NULL,
    eligibility TEXT,
    goal_target REAL NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_campaigns_tenant ON campaigns(tenant_id, deleted);
`

const schemaSettings = `
CREATE TABLE IF NOT EXISTS settings (
    tenant_id TEXT NOT NULL,
    setting_key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, setting_key)
);
`

const schemaSalesGoals = `
CREATE TABLE IF NOT EXISTS sales_goals (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    month TEXT NOT NULL,
    target REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, user_id, month)
);
`

// AllSchemas returns all schema definitions in order.
func AllSchemas() []string {
	return []string{
		schemaSales,
		schemaCommissionTables,
		schemaCampaigns,
		schemaSettings,
		schemaSalesGoals,
	}
}
