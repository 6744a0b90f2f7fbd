package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"orasp/internal/orasp"
	"orasp/internal/stats"
)

var ErrNotFound = errors.New("instance not found")

// Record is the catalog row of one generated instance.
type Record struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Key        string `json:"key"`
	Format     string `json:"format"`
	Seed       int64  `json:"seed"`
	Operations int    `gorm:"index:idx_size" json:"operations"`
	Surgeons   int    `gorm:"index:idx_size" json:"surgeons"`
	Rooms      int    `gorm:"index:idx_size" json:"rooms"`
	Tmax       int    `json:"tmax"`
	BigM       int    `json:"big_m"`

	TotalTimeMean  float64 `json:"tt_mean"`
	SetupMean      float64 `json:"setup_mean"`
	CompatDensity  float64 `json:"compat_density"`
	CapableDensity float64 `json:"capable_density"`
	Load           float64 `json:"load"`
	Repairs        int     `json:"repairs"`

	Params    string    `json:"params"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRecord(inst *orasp.Instance, p orasp.Params, key, format string) Record {
	s := stats.Summarize(inst)
	params, _ := json.Marshal(p)
	return Record{
		ID:             inst.ID,
		Key:            key,
		Format:         format,
		Seed:           inst.Seed,
		Operations:     inst.Operations,
		Surgeons:       inst.Surgeons,
		Rooms:          inst.Rooms,
		Tmax:           inst.Tmax,
		BigM:           inst.BigM,
		TotalTimeMean:  s.TotalTime.Mean,
		SetupMean:      s.Setup.Mean,
		CompatDensity:  s.CompatDensity,
		CapableDensity: s.CapableDensity,
		Load:           s.Load,
		Repairs:        s.Repairs,
		Params:         string(params),
	}
}

// Filter narrows List; zero fields match everything.
type Filter struct {
	Operations int
	Surgeons   int
	Rooms      int
}

type Catalog struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the SQLite file at dsn and migrates the schema.
func Open(dsn string, log zerolog.Logger) (*Catalog, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return New(db, log)
}

func New(db *gorm.DB, log zerolog.Logger) (*Catalog, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return &Catalog{
		db:     db,
		logger: log.With().Str("component", "catalog").Logger(),
	}, nil
}

// Save inserts rec or replaces the row with the same ID.
func (c *Catalog) Save(ctx context.Context, rec Record) error {
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", rec.ID, err)
	}
	c.logger.Debug().Str("id", rec.ID).Str("key", rec.Key).Msg("instance cataloged")
	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := c.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &rec, nil
}

func (c *Catalog) List(ctx context.Context, f Filter) ([]Record, error) {
	q := c.db.WithContext(ctx).Model(&Record{})
	if f.Operations > 0 {
		q = q.Where("operations = ?", f.Operations)
	}
	if f.Surgeons > 0 {
		q = q.Where("surgeons = ?", f.Surgeons)
	}
	if f.Rooms > 0 {
		q = q.Where("rooms = ?", f.Rooms)
	}
	var out []Record
	if err := q.Order("operations, surgeons, rooms, seed").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return out, nil
}

func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
