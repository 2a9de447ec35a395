package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS contract_envelopes (
		token UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		unico_process_id TEXT NOT NULL DEFAULT '',
		confia_process_id TEXT NOT NULL DEFAULT '',
		last_score VARCHAR(8) NOT NULL DEFAULT '',
		last_score_status SMALLINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_envelopes_unico_process ON contract_envelopes (unico_process_id) WHERE unico_process_id <> '';`,
	`CREATE INDEX IF NOT EXISTS idx_envelopes_confia_process ON contract_envelopes (confia_process_id) WHERE confia_process_id <> '';`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		envelope_token UUID NOT NULL REFERENCES contract_envelopes(token),
		product_type SMALLINT NOT NULL,
		status SMALLINT NOT NULL DEFAULT 1,
		signed BOOLEAN NOT NULL DEFAULT FALSE,
		main_proposal BOOLEAN NOT NULL DEFAULT FALSE,
		corban_desk BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_envelope ON contracts (envelope_token);`,
	`CREATE TABLE IF NOT EXISTS contract_status_records (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		seq BIGINT NOT NULL,
		status SMALLINT NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		original_statuses JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_status_records_contract_seq ON contract_status_records (contract_id, seq);`,
	`CREATE INDEX IF NOT EXISTS idx_status_records_snapshot ON contract_status_records (contract_id) WHERE original_statuses IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS contract_validations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		rule_message VARCHAR(300) NOT NULL,
		checked BOOLEAN NOT NULL DEFAULT TRUE,
		feedback TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_validations_contract_rule ON contract_validations (contract_id, rule_message);`,
	`CREATE TABLE IF NOT EXISTS portability_proposals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL UNIQUE REFERENCES contracts(id),
		status SMALLINT NOT NULL DEFAULT 10,
		proposal_key UUID,
		debt_balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		installment_num INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_portability_proposal_key ON portability_proposals (proposal_key) WHERE proposal_key IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS refinancing_proposals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL UNIQUE REFERENCES contracts(id),
		status SMALLINT NOT NULL DEFAULT 10,
		proposal_key UUID,
		total_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		change_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_refinancing_proposal_key ON refinancing_proposals (proposal_key) WHERE proposal_key IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS free_margin_proposals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL UNIQUE REFERENCES contracts(id),
		status SMALLINT NOT NULL DEFAULT 10,
		proposal_key UUID,
		total_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_free_margin_proposal_key ON free_margin_proposals (proposal_key) WHERE proposal_key IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS benefit_cards (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL UNIQUE REFERENCES contracts(id),
		status SMALLINT NOT NULL DEFAULT 10,
		card_limit NUMERIC(18,2) NOT NULL DEFAULT 0,
		withdraw_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS complementary_withdrawals (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL UNIQUE REFERENCES contracts(id),
		status SMALLINT NOT NULL DEFAULT 10,
		withdraw_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
