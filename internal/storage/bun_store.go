package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/carter293/reactive-notebook/notebook"
)

// BunStore is the reference Postgres Storage implementation (SPEC_FULL
// §6.1, §2.2), grounded directly on the teacher's
// internal/infrastructure/storage/bun_store.go: same
// sql.OpenDB(pgdriver.NewConnector(...)) + bun.NewDB(sqldb, pgdialect.New())
// construction, same IfNotExists table bootstrap, same pattern of storing
// the mutable document body as a single jsonb column rather than
// normalizing every nested field into its own table.
type BunStore struct {
	db *bun.DB
}

// NotebookModel is the persisted row shape: identity/ownership columns
// plus a jsonb snapshot of the full cell sequence and connection string.
type NotebookModel struct {
	bun.BaseModel `bun:"table:notebooks"`

	ID               string `bun:"id,pk"`
	Owner            string `bun:"owner"`
	Name             string `bun:"name"`
	ConnectionString string `bun:"connection_string"`
	Revision         uint64 `bun:"revision"`
	Cells            []byte `bun:"cells,type:jsonb"`
}

func NewBunStore(dsn string) (*BunStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}, nil
}

func (s *BunStore) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*NotebookModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *BunStore) Save(ctx context.Context, nb *notebook.Notebook) error {
	body, err := encodeCells(nb)
	if err != nil {
		return fmt.Errorf("encode notebook body: %w", err)
	}
	model := &NotebookModel{
		ID:               nb.ID,
		Owner:            nb.Owner,
		Name:             nb.Name,
		ConnectionString: nb.ConnectionString,
		Revision:         nb.Revision,
		Cells:            body,
	}
	_, err = s.db.NewInsert().
		Model(model).
		On("CONFLICT (id) DO UPDATE").
		Set("owner = EXCLUDED.owner").
		Set("name = EXCLUDED.name").
		Set("connection_string = EXCLUDED.connection_string").
		Set("revision = EXCLUDED.revision").
		Set("cells = EXCLUDED.cells").
		Exec(ctx)
	return err
}

func (s *BunStore) Load(ctx context.Context, id string) (*notebook.Notebook, error) {
	model := new(NotebookModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load notebook %s: %w", id, err)
	}
	return decodeNotebook(model)
}

func (s *BunStore) List(ctx context.Context, owner string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().Model((*NotebookModel)(nil)).Column("id").Where("owner = ?", owner).Scan(ctx, &ids)
	return ids, err
}

func (s *BunStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*NotebookModel)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func encodeCells(nb *notebook.Notebook) ([]byte, error) {
	return json.Marshal(nb.ToDTOs())
}

func decodeNotebook(model *NotebookModel) (*notebook.Notebook, error) {
	var dtos []notebook.CellDTO
	if err := json.Unmarshal(model.Cells, &dtos); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	nb := notebook.New(model.Owner, model.Name)
	nb.ID = model.ID
	nb.ConnectionString = model.ConnectionString
	nb.Revision = model.Revision
	nb.LoadDTOs(dtos)
	return nb, nil
}
