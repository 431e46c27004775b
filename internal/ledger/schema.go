package ledger

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS affiliate_commissions (
		id            TEXT PRIMARY KEY,
		affiliate_id  TEXT NOT NULL,
		amount_cents  BIGINT NOT NULL,
		status        TEXT NOT NULL CHECK (status IN ('PENDING', 'AVAILABLE', 'PAID', 'REVERSED')),
		event_type    TEXT NOT NULL CHECK (event_type IN ('SUBSCRIPTION', 'TRANSACTION', 'REFUND')),
		tier          TEXT NOT NULL DEFAULT 'DIRECT' CHECK (tier IN ('DIRECT', 'PARENT', 'SUB')),
		created_at    TIMESTAMPTZ NOT NULL,
		CONSTRAINT affiliate_commissions_refund_sign CHECK (event_type <> 'REFUND' OR amount_cents <= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_commissions_affiliate_idx ON affiliate_commissions (affiliate_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS affiliate_payouts (
		id                     TEXT PRIMARY KEY,
		affiliate_id           TEXT NOT NULL,
		amount_cents           BIGINT NOT NULL CHECK (amount_cents >= 0),
		status                 TEXT NOT NULL CHECK (status IN ('CREATED', 'SENT', 'FAILED')),
		period_start           TIMESTAMPTZ NOT NULL,
		period_end             TIMESTAMPTZ NOT NULL,
		external_transfer_ref  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_payouts_affiliate_idx ON affiliate_payouts (affiliate_id, period_end)`,
	`CREATE TABLE IF NOT EXISTS affiliate_attributions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		affiliate_id  TEXT NOT NULL,
		type          TEXT NOT NULL CHECK (type IN ('USER_SIGNUP', 'BUSINESS_SIGNUP')),
		source        TEXT NOT NULL CHECK (source IN ('REFERRAL_LINK', 'PROMO_CODE', 'MANUAL')),
		created_at    TIMESTAMPTZ NOT NULL,
		ends_at       TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, type)
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_attributions_affiliate_idx ON affiliate_attributions (affiliate_id, ends_at)`,
}
