package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertQuery_ToSQL(t *testing.T) {
	db := New(nil)

	tests := []struct {
		name       string
		setupQuery func() *InsertQuery[TestPage]
		wantSQL    string
		wantArgLen int
		wantErr    bool
	}{
		{
			name: "identity and zero default are omitted",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db).Values(TestPage{WebsiteID: "w1", Title: "About", Path: "/about"})
			},
			wantSQL:    "INSERT INTO test_page (website_id, title, path) VALUES ($1, $2, $3)",
			wantArgLen: 3,
		},
		{
			name: "non-zero default is written",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db).
					Values(TestPage{WebsiteID: "w1", Title: "Home", Path: "/", IsHomePage: true}).
					Returning("*")
			},
			wantSQL:    "INSERT INTO test_page (website_id, title, path, is_home_page) VALUES ($1, $2, $3, $4) RETURNING *",
			wantArgLen: 4,
		},
		{
			name: "multiple rows",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db).Values(
					TestPage{WebsiteID: "w1", Title: "A", Path: "/a"},
					TestPage{WebsiteID: "w1", Title: "B", Path: "/b"},
				)
			},
			wantSQL:    "INSERT INTO test_page (website_id, title, path) VALUES ($1, $2, $3), ($4, $5, $6)",
			wantArgLen: 6,
		},
		{
			name: "on conflict do nothing",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db).
					Values(TestPage{WebsiteID: "w1", Title: "A", Path: "/a"}).
					OnConflictDoNothing("website_id", "path")
			},
			wantSQL:    "INSERT INTO test_page (website_id, title, path) VALUES ($1, $2, $3) ON CONFLICT (website_id, path) DO NOTHING",
			wantArgLen: 3,
		},
		{
			name: "rows with different column sets",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db).Values(
					TestPage{WebsiteID: "w1", Title: "A", Path: "/a"},
					TestPage{WebsiteID: "w1", Title: "B", Path: "/", IsHomePage: true},
				)
			},
			wantErr: true,
		},
		{
			name: "no values",
			setupQuery: func() *InsertQuery[TestPage] {
				return Insert[TestPage](db)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.setupQuery().ToSQL()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.wantArgLen)
		})
	}
}

func TestInsertQuery_SkipsReadOnlyColumns(t *testing.T) {
	db := New(nil)
	color := "#fff"

	sql, args, err := Insert[TestSite](db).
		Values(TestSite{WebsiteID: "w1", Name: "demo", PrimaryColor: &color}).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO sites (website_id, name) VALUES ($1, $2)", sql)
	assert.Equal(t, []any{"w1", "demo"}, args)
}

func TestUpdateQuery_ToSQL(t *testing.T) {
	db := New(nil)

	tests := []struct {
		name       string
		setupQuery func() *UpdateQuery[TestPage]
		wantSQL    string
		wantArgs   []any
		wantErr    bool
	}{
		{
			name: "sets keep their order",
			setupQuery: func() *UpdateQuery[TestPage] {
				return Update[TestPage](db).
					Set("title", "About").
					Set("path", "/about").
					Where(Eq("page_id", int64(4)))
			},
			wantSQL:  "UPDATE test_page SET title = $1, path = $2 WHERE page_id = $3",
			wantArgs: []any{"About", "/about", int64(4)},
		},
		{
			name: "raw expression takes no parameter",
			setupQuery: func() *UpdateQuery[TestPage] {
				return Update[TestPage](db).
					Set("title", "About").
					SetRaw("updated_at", "NOW()").
					Where(Eq("page_id", int64(4))).
					And(Eq("website_id", "w1")).
					Returning("*")
			},
			wantSQL:  "UPDATE test_page SET title = $1, updated_at = NOW() WHERE page_id = $2 AND website_id = $3 RETURNING *",
			wantArgs: []any{"About", int64(4), "w1"},
		},
		{
			name: "no sets",
			setupQuery: func() *UpdateQuery[TestPage] {
				return Update[TestPage](db).Where(Eq("page_id", int64(4)))
			},
			wantErr: true,
		},
		{
			name: "no where",
			setupQuery: func() *UpdateQuery[TestPage] {
				return Update[TestPage](db).Set("title", "x")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.setupQuery().ToSQL()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestDeleteQuery_ToSQL(t *testing.T) {
	db := New(nil)

	sql, args, err := Delete[TestPage](db).
		Where(Eq("page_id", int64(9))).
		And(Eq("website_id", "w1")).
		Returning("page_id").
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM test_page WHERE page_id = $1 AND website_id = $2 RETURNING page_id", sql)
	assert.Len(t, args, 2)

	_, _, err = Delete[TestPage](db).ToSQL()
	assert.Error(t, err)
}
