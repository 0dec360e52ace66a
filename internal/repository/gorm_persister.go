package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/todo-list/internal/database"
	"github.com/Tomlord1122/todo-list/internal/domain"
)

// todoRow is the todo_items table layout.
type todoRow struct {
	ID          uint32    `gorm:"primaryKey;autoIncrement:false"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"not null"`
	DueDate     time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
	Completed   bool      `gorm:"not null"`
}

func (todoRow) TableName() string { return "todo_items" }

// GormPersister mirrors the store into a PostgreSQL table. Every Save
// replaces the table contents inside one transaction.
type GormPersister struct {
	db database.Service
}

// NewGormPersister migrates the todo_items table and returns a persister
// backed by it.
func NewGormPersister(db database.Service) (*GormPersister, error) {
	if err := db.GetDB().AutoMigrate(&todoRow{}); err != nil {
		return nil, fmt.Errorf("migrate todo_items: %w", err)
	}
	return &GormPersister{db: db}, nil
}

func (p *GormPersister) Name() string { return "postgres" }

func (p *GormPersister) Load(ctx context.Context) (domain.TodoList, error) {
	var rows []todoRow
	if err := p.db.GetDB().WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select todo_items: %w", err)
	}
	list := make(domain.TodoList, 0, len(rows))
	for _, r := range rows {
		list = append(list, domain.Entry{ID: r.ID, Item: domain.TodoItem{
			Title:       r.Title,
			Description: r.Description,
			DueDate:     r.DueDate.UTC(),
			CreatedAt:   r.CreatedAt.UTC(),
			Completed:   r.Completed,
		}})
	}
	return list, nil
}

func (p *GormPersister) Save(ctx context.Context, list domain.TodoList) error {
	rows := make([]todoRow, 0, len(list))
	for _, e := range list {
		rows = append(rows, todoRow{
			ID:          e.ID,
			Title:       e.Item.Title,
			Description: e.Item.Description,
			DueDate:     e.Item.DueDate,
			CreatedAt:   e.Item.CreatedAt,
			Completed:   e.Item.Completed,
		})
	}

	return p.db.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&todoRow{}).Error; err != nil {
			return fmt.Errorf("clear todo_items: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("insert todo_items: %w", err)
		}
		return nil
	})
}

func (p *GormPersister) Health(ctx context.Context) map[string]string {
	return p.db.Health(ctx)
}

func (p *GormPersister) Close() error {
	return p.db.Close()
}
