package ldb

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/umbraproject/umbrad/infrastructure/db/database"
)

func prepareDatabaseForTest(t *testing.T, testName string) (db *LevelDB, teardownFunc func()) {
	path := t.TempDir()
	db, err := NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly failed: %s", testName, err)
	}
	teardownFunc = func() {
		err = db.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
	}
	return db, teardownFunc
}

func TestGetPutDelete(t *testing.T) {
	db, teardownFunc := prepareDatabaseForTest(t, "TestGetPutDelete")
	defer teardownFunc()

	key := database.MakeBucket([]byte("test")).Key([]byte("key"))
	value := []byte("value")

	_, err := db.Get(key)
	if !database.IsNotFoundError(err) {
		t.Fatalf("TestGetPutDelete: Get on a missing key "+
			"expected ErrNotFound, got: %v", err)
	}

	err = db.Put(key, value)
	if err != nil {
		t.Fatalf("TestGetPutDelete: Put unexpectedly failed: %s", err)
	}

	returnedValue, err := db.Get(key)
	if err != nil {
		t.Fatalf("TestGetPutDelete: Get unexpectedly failed: %s", err)
	}
	if !bytes.Equal(returnedValue, value) {
		t.Fatalf("TestGetPutDelete: Get returned wrong value. Want: %s, got: %s",
			value, returnedValue)
	}

	err = db.Delete(key)
	if err != nil {
		t.Fatalf("TestGetPutDelete: Delete unexpectedly failed: %s", err)
	}
	has, err := db.Has(key)
	if err != nil {
		t.Fatalf("TestGetPutDelete: Has unexpectedly failed: %s", err)
	}
	if has {
		t.Fatalf("TestGetPutDelete: Has returned true for a deleted key")
	}
}

// TestTransactionCommitAtomicity makes sure that all writes batched in a
// transaction either apply together on Commit or not at all on Rollback.
func TestTransactionCommitAtomicity(t *testing.T) {
	db, teardownFunc := prepareDatabaseForTest(t, "TestTransactionCommitAtomicity")
	defer teardownFunc()

	bucket := database.MakeBucket([]byte("atomicity"))

	// Write a couple of keys in a transaction and roll it back.
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("TestTransactionCommitAtomicity: Begin unexpectedly failed: %s", err)
	}
	for i := 0; i < 5; i++ {
		err = tx.Put(bucket.Key([]byte(fmt.Sprintf("key%d", i))), []byte("rolled-back"))
		if err != nil {
			t.Fatalf("TestTransactionCommitAtomicity: Put unexpectedly failed: %s", err)
		}
	}
	err = tx.Rollback()
	if err != nil {
		t.Fatalf("TestTransactionCommitAtomicity: Rollback unexpectedly failed: %s", err)
	}
	for i := 0; i < 5; i++ {
		has, err := db.Has(bucket.Key([]byte(fmt.Sprintf("key%d", i))))
		if err != nil {
			t.Fatalf("TestTransactionCommitAtomicity: Has unexpectedly failed: %s", err)
		}
		if has {
			t.Fatalf("TestTransactionCommitAtomicity: a rolled-back key was written")
		}
	}

	// Write the same keys in a new transaction and commit it.
	tx, err = db.Begin()
	if err != nil {
		t.Fatalf("TestTransactionCommitAtomicity: Begin unexpectedly failed: %s", err)
	}
	for i := 0; i < 5; i++ {
		err = tx.Put(bucket.Key([]byte(fmt.Sprintf("key%d", i))), []byte("committed"))
		if err != nil {
			t.Fatalf("TestTransactionCommitAtomicity: Put unexpectedly failed: %s", err)
		}
	}
	err = tx.Commit()
	if err != nil {
		t.Fatalf("TestTransactionCommitAtomicity: Commit unexpectedly failed: %s", err)
	}
	for i := 0; i < 5; i++ {
		value, err := db.Get(bucket.Key([]byte(fmt.Sprintf("key%d", i))))
		if err != nil {
			t.Fatalf("TestTransactionCommitAtomicity: Get unexpectedly failed: %s", err)
		}
		if !bytes.Equal(value, []byte("committed")) {
			t.Fatalf("TestTransactionCommitAtomicity: Get returned wrong value. "+
				"Want: committed, got: %s", value)
		}
	}
}

// TestCursorSanity validates typical cursor usage: iterating in key order
// over a bucket prefix without observing keys of sibling buckets.
func TestCursorSanity(t *testing.T) {
	db, teardownFunc := prepareDatabaseForTest(t, "TestCursorSanity")
	defer teardownFunc()

	bucket := database.MakeBucket([]byte("cursor"))
	otherBucket := database.MakeBucket([]byte("other"))
	entries := []struct {
		key   string
		value string
	}{
		{"a", "1"},
		{"b", "2"},
		{"c", "3"},
	}
	for _, entry := range entries {
		err := db.Put(bucket.Key([]byte(entry.key)), []byte(entry.value))
		if err != nil {
			t.Fatalf("TestCursorSanity: Put unexpectedly failed: %s", err)
		}
	}
	err := db.Put(otherBucket.Key([]byte("x")), []byte("not-in-bucket"))
	if err != nil {
		t.Fatalf("TestCursorSanity: Put unexpectedly failed: %s", err)
	}

	cursor, err := db.Cursor(bucket)
	if err != nil {
		t.Fatalf("TestCursorSanity: Cursor unexpectedly failed: %s", err)
	}
	defer cursor.Close()

	i := 0
	for cursor.Next() {
		if i >= len(entries) {
			t.Fatalf("TestCursorSanity: cursor returned more entries than expected")
		}
		key, err := cursor.Key()
		if err != nil {
			t.Fatalf("TestCursorSanity: Key unexpectedly failed: %s", err)
		}
		if !bytes.Equal(key.Suffix(), []byte(entries[i].key)) {
			t.Fatalf("TestCursorSanity: cursor returned wrong key. Want: %s, got: %s",
				entries[i].key, key.Suffix())
		}
		value, err := cursor.Value()
		if err != nil {
			t.Fatalf("TestCursorSanity: Value unexpectedly failed: %s", err)
		}
		if !bytes.Equal(value, []byte(entries[i].value)) {
			t.Fatalf("TestCursorSanity: cursor returned wrong value. Want: %s, got: %s",
				entries[i].value, value)
		}
		i++
	}
	if i != len(entries) {
		t.Fatalf("TestCursorSanity: cursor returned %d entries, expected %d", i, len(entries))
	}
}

func TestCursorCloseErrors(t *testing.T) {
	db, teardownFunc := prepareDatabaseForTest(t, "TestCursorCloseErrors")
	defer teardownFunc()

	cursor, err := db.Cursor(database.MakeBucket([]byte("close")))
	if err != nil {
		t.Fatalf("TestCursorCloseErrors: Cursor unexpectedly failed: %s", err)
	}
	err = cursor.Close()
	if err != nil {
		t.Fatalf("TestCursorCloseErrors: Close unexpectedly failed: %s", err)
	}
	err = cursor.Close()
	if err == nil {
		t.Fatalf("TestCursorCloseErrors: closing an already closed cursor " +
			"unexpectedly succeeded")
	}

	defer func() {
		panicErr := recover()
		if panicErr == nil {
			t.Fatalf("TestCursorCloseErrors: Next on a closed cursor unexpectedly didn't panic")
		}
	}()
	cursor.Next()
}
