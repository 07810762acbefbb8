package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fpbridge/pkg/types"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Journal records sale outcomes and fiscal report runs in SQLite.
// The fiscal device keeps the legally binding record; this is the
// bridge-side audit trail served on /journal.
type Journal struct {
	dbPath string
	db     *sql.DB
	mutex  sync.Mutex
}

// New creates a journal. Open() must be called before use.
func New(dbPath string) *Journal {
	if dbPath == "" {
		dbPath = "./data/journal.db"
	}
	return &Journal{dbPath: dbPath}
}

// Open opens or creates the database and initializes tables.
func (j *Journal) Open() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	dir := filepath.Dir(j.dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", j.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	j.db = db

	if err := j.initSchema(); err != nil {
		db.Close()
		j.db = nil
		return err
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *Journal) initSchema() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			sale_time TEXT NOT NULL,
			total REAL,
			discount REAL,
			item_count INTEGER,
			payment_type INTEGER,
			member_id TEXT,
			success INTEGER,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales(created_at);
	`)
	if err != nil {
		return fmt.Errorf("create sales table: %w", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			report_time TEXT NOT NULL,
			kind TEXT,
			success INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`)
	if err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}

	return nil
}

// LogSale writes one sale outcome. A missing ID is generated here so
// callers still get a stable identifier back in the entry.
func (j *Journal) LogSale(entry *types.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.db == nil {
		return fmt.Errorf("journal closed")
	}

	success := 0
	if entry.Success {
		success = 1
	}
	_, err := j.db.Exec(`
		INSERT INTO sales (id, sale_time, total, discount, item_count, payment_type, member_id, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Time.Format("2006-01-02 15:04:05"),
		entry.Total, entry.Discount, entry.ItemCount, entry.PaymentType,
		entry.MemberID, success, entry.Error,
	)
	return err
}

// LogReport records an X or Z report run ("X" / "Z").
func (j *Journal) LogReport(kind string, success bool) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.db == nil {
		return fmt.Errorf("journal closed")
	}

	s := 0
	if success {
		s = 1
	}
	_, err := j.db.Exec(`
		INSERT INTO reports (report_time, kind, success) VALUES (?, ?, ?)`,
		time.Now().Format("2006-01-02 15:04:05"), kind, s)
	return err
}

// RecentSales returns the newest sale entries, most recent first.
func (j *Journal) RecentSales(limit int) ([]types.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()
	if j.db == nil {
		return nil, fmt.Errorf("journal closed")
	}

	rows, err := j.db.Query(`
		SELECT id, sale_time, total, discount, item_count, payment_type, member_id, success, error
		FROM sales ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []types.JournalEntry
	for rows.Next() {
		var e types.JournalEntry
		var saleTime string
		var success int
		if err := rows.Scan(&e.ID, &saleTime, &e.Total, &e.Discount,
			&e.ItemCount, &e.PaymentType, &e.MemberID, &success, &e.Error); err != nil {
			return nil, err
		}
		e.Success = success != 0
		if t, perr := time.ParseInLocation("2006-01-02 15:04:05", saleTime, time.Local); perr == nil {
			e.Time = t
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Size returns the journal database file size in bytes.
func (j *Journal) Size() int64 {
	info, err := os.Stat(j.dbPath)
	if err != nil {
		return 0
	}
	return info.Size()
}
