package migration_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/mmsi/orderdesk/pkg/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

type gadget struct {
	ID uint
}

func init() {
	migration.Register("20990101000001_create_widgets", migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&widget{}) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) },
	})
	migration.Register("20990101000000_create_gadgets", migration.Func{
		UpFn:   func(db *gorm.DB) error { return db.AutoMigrate(&gadget{}) },
		DownFn: func(db *gorm.DB) error { return db.Migrator().DropTable(&gadget{}) },
	})
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestRunStatusRollback(t *testing.T) {
	db := newDB(t)
	var out bytes.Buffer
	r := migration.New(db).WithOutput(&out)

	require.NoError(t, r.Run())
	assert.True(t, db.Migrator().HasTable(&widget{}))
	assert.True(t, db.Migrator().HasTable(&gadget{}))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("create_gadgets")), bytes.Index(out.Bytes(), []byte("create_widgets")))

	out.Reset()
	require.NoError(t, r.Run())
	assert.Contains(t, out.String(), "Nothing to migrate.")

	out.Reset()
	require.NoError(t, r.Status())
	assert.Regexp(t, `create_widgets\s+Ran\s+1`, out.String())

	require.NoError(t, r.Rollback())
	assert.False(t, db.Migrator().HasTable(&widget{}))
	assert.False(t, db.Migrator().HasTable(&gadget{}))

	out.Reset()
	require.NoError(t, r.Status())
	assert.Regexp(t, `create_widgets\s+Pending`, out.String())

	out.Reset()
	require.NoError(t, r.Rollback())
	assert.Contains(t, out.String(), "Nothing to roll back.")
}
