package searcher

import (
	"context"
	"database/sql"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var ethToWei = big.NewInt(1e18)

type DBAttempt struct {
	TxHash          []byte         `db:"tx_hash"`
	TargetBlock     int64          `db:"target_block"`
	Token           []byte         `db:"token"`
	Pair            []byte         `db:"pair"`
	Status          string         `db:"status"`
	Error           sql.NullString `db:"error"`
	OptimalIn       sql.NullString `db:"optimal_in"`
	Revenue         sql.NullString `db:"revenue"`
	FrontrunGasUsed sql.NullInt64  `db:"frontrun_gas_used"`
	BackrunGasUsed  sql.NullInt64  `db:"backrun_gas_used"`
	NextBaseFee     sql.NullString `db:"next_base_fee"`
	Bribe           sql.NullString `db:"bribe"`
	PriorityFee     sql.NullString `db:"priority_fee"`
	BundleHash      []byte         `db:"bundle_hash"`
	Relays          sql.NullString `db:"relays"`
	InsertedAt      time.Time      `db:"inserted_at"`
}

var insertAttemptQuery = `
INSERT INTO sandwich_attempt (tx_hash, target_block, token, pair, status, error, optimal_in, revenue,
                              frontrun_gas_used, backrun_gas_used, next_base_fee, bribe, priority_fee,
                              bundle_hash, relays)
VALUES (:tx_hash, :target_block, :token, :pair, :status, :error, :optimal_in, :revenue,
        :frontrun_gas_used, :backrun_gas_used, :next_base_fee, :bribe, :priority_fee,
        :bundle_hash, :relays)
ON CONFLICT (tx_hash, target_block) DO UPDATE SET status = :status, error = :error, bundle_hash = :bundle_hash, relays = :relays`

var selectAttemptQuery = `
SELECT tx_hash, target_block, token, pair, status, error, optimal_in, revenue, frontrun_gas_used, backrun_gas_used,
       next_base_fee, bribe, priority_fee, bundle_hash, relays, inserted_at
FROM sandwich_attempt
WHERE tx_hash = $1 AND target_block = $2`

type DBBackend struct {
	db *sqlx.DB

	insertAttempt *sqlx.NamedStmt
	selectAttempt *sqlx.Stmt
}

func NewDBBackend(postgresDSN string) (*DBBackend, error) {
	db, err := sqlx.Connect("postgres", postgresDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(20)

	insertAttempt, err := db.PrepareNamed(insertAttemptQuery)
	if err != nil {
		return nil, err
	}
	selectAttempt, err := db.Preparex(selectAttemptQuery)
	if err != nil {
		return nil, err
	}

	return &DBBackend{
		db:            db,
		insertAttempt: insertAttempt,
		selectAttempt: selectAttempt,
	}, nil
}

// InsertAttempt stores the attempt, a second attempt for the same transaction and block only updates its outcome
func (b *DBBackend) InsertAttempt(ctx context.Context, attempt *Attempt) error {
	dbAttempt := DBAttempt{
		TxHash:          attempt.TxHash.Bytes(),
		TargetBlock:     int64(attempt.TargetBlock),
		Token:           attempt.Token.Bytes(),
		Pair:            attempt.Pair.Bytes(),
		Status:          attempt.Status,
		Error:           sql.NullString{String: attempt.Error, Valid: attempt.Error != ""},
		FrontrunGasUsed: sql.NullInt64{Int64: int64(attempt.FrontrunGasUsed), Valid: attempt.FrontrunGasUsed != 0},
		BackrunGasUsed:  sql.NullInt64{Int64: int64(attempt.BackrunGasUsed), Valid: attempt.BackrunGasUsed != 0},
		NextBaseFee:     dbNullEth(attempt.NextBaseFee),
		Relays:          sql.NullString{String: strings.Join(attempt.Relays, ","), Valid: len(attempt.Relays) > 0},
	}
	if attempt.Plan != nil {
		dbAttempt.OptimalIn = dbNullEth(attempt.Plan.OptimalIn)
		dbAttempt.Revenue = dbNullEth(attempt.Plan.Revenue)
	}
	if attempt.Bribe != nil {
		dbAttempt.Bribe = dbNullEth(attempt.Bribe.Amount)
		dbAttempt.PriorityFee = dbNullEth(attempt.Bribe.PriorityFee)
	}
	if attempt.BundleHash != (common.Hash{}) {
		dbAttempt.BundleHash = attempt.BundleHash.Bytes()
	}

	_, err := b.insertAttempt.ExecContext(ctx, dbAttempt)
	return err
}

func (b *DBBackend) GetAttempt(ctx context.Context, txHash common.Hash, targetBlock uint64) (*DBAttempt, error) {
	var dbAttempt DBAttempt
	err := b.selectAttempt.GetContext(ctx, &dbAttempt, txHash.Bytes(), int64(targetBlock))
	if err != nil {
		return nil, err
	}
	return &dbAttempt, nil
}

func dbIntToEth(i *big.Int) string {
	return new(big.Rat).SetFrac(i, ethToWei).FloatString(18)
}

func dbNullEth(i *big.Int) sql.NullString {
	if i == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: dbIntToEth(i), Valid: true}
}

func (b *DBBackend) Close() error {
	return b.db.Close()
}
