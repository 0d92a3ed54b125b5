package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lulocustoms/shop/internal/catalog/repo"
	"github.com/lulocustoms/shop/internal/catalog/storage"
	"github.com/lulocustoms/shop/internal/catalog/transport"
	"github.com/lulocustoms/shop/internal/models"
	"github.com/lulocustoms/shop/internal/testutil"
	"github.com/lulocustoms/shop/pkg/apperr"
	"github.com/lulocustoms/shop/pkg/events"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeIndex struct {
	ids     []uint
	err     error
	indexed []uint
	deleted []uint
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id uint) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, bool) ([]uint, error) {
	return f.ids, f.err
}

type failingStore struct{ storage.ImageStore }

func (failingStore) Remove(context.Context, string) error { return errors.New("disk gone") }

type fixture struct {
	svc    *CatalogService
	dir    string
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	dir := t.TempDir()
	rec := &events.Recorder{}
	return &fixture{
		svc: &CatalogService{
			Repo:   &repo.GormRepo{DB: db},
			Images: storage.NewLocalStore(dir, "/uploads/products/"),
			Events: rec,
		},
		dir:    dir,
		events: rec,
	}
}

func input(name, price string, stock int) transport.ProductInput {
	return transport.ProductInput{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Active: true}
}

func TestCatalogService_List_ActiveFilterAndOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.svc.Repo.DB

	testutil.SeedProduct(t, db, "Old", "10.00", 1, true)
	testutil.SeedProduct(t, db, "Hidden", "10.00", 1, false)
	testutil.SeedProduct(t, db, "New", "10.00", 1, true)

	public, err := f.svc.List(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "New", public[0].Name)
	assert.Equal(t, "Old", public[1].Name)

	all, err := f.svc.List(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Hidden", all[1].Name)
}

func TestCatalogService_List_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db := f.svc.Repo.DB

	a := testutil.SeedProduct(t, db, "Felga BBS", "10.00", 1, true)
	testutil.SeedProduct(t, db, "Spoiler", "10.00", 1, true)
	c := testutil.SeedProduct(t, db, "Felga 100%", "10.00", 1, true)

	got, err := f.svc.List(ctx, "felga", false)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.svc.List(ctx, "100%", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)

	// index order wins when the index answers
	idx := &fakeIndex{ids: []uint{a.ID, 999, c.ID}}
	f.svc.Index = idx
	got, err = f.svc.List(ctx, "anything", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, c.ID, got[1].ID)

	idx.err = errors.New("cluster down")
	got, err = f.svc.List(ctx, "spoiler", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Spoiler", got[0].Name)
}

func TestCatalogService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hidden := testutil.SeedProduct(t, f.svc.Repo.DB, "Hidden", "10.00", 1, false)

	_, err := f.svc.Get(ctx, hidden.ID, false)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Product not found", err.Error())

	p, err := f.svc.Get(ctx, hidden.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Hidden", p.Name)

	_, err = f.svc.Get(ctx, 12345, true)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCatalogService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		in  transport.ProductInput
		msg string
	}{
		{input("  ", "10.00", 1), "Product name is required"},
		{input("Felga", "0", 1), "Price must be greater than 0"},
		{input("Felga", "-1.50", 1), "Price must be greater than 0"},
		{input("Felga", "10.00", -1), "Stock cannot be negative"},
	}
	for _, tc := range cases {
		_, err := f.svc.Create(ctx, tc.in, nil)
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, tc.msg, err.Error())
	}

	_, err := f.svc.Create(ctx, input("Felga", "10.00", 1), strings.NewReader("not an image"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Invalid image type. Allowed: JPG, PNG, GIF, WEBP", err.Error())

	big := append(append([]byte{}, pngBytes...), make([]byte, storage.MaxImageSize)...)
	_, err = f.svc.Create(ctx, input("Felga", "10.00", 1), bytes.NewReader(big))
	assert.Equal(t, "Image too large. Max 5MB", err.Error())

	all, err := f.svc.List(ctx, "", true)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.events.Events())
}

func TestCatalogService_CreateWithImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idx := &fakeIndex{}
	f.svc.Index = idx

	in := input(" Felga ", "199.99", 4)
	in.Active = false
	p, err := f.svc.Create(ctx, in, bytes.NewReader(pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "Felga", p.Name)
	assert.False(t, p.Active)
	require.NotNil(t, p.ImageURL)
	assert.True(t, strings.HasPrefix(*p.ImageURL, "/uploads/products/product_"))
	assert.True(t, strings.HasSuffix(*p.ImageURL, ".png"))

	_, err = os.Stat(filepath.Join(f.dir, filepath.Base(*p.ImageURL)))
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, p.ID, true)
	require.NoError(t, err)
	assert.False(t, stored.Active)
	assert.Equal(t, "199.99", stored.Price.StringFixed(2))

	assert.Equal(t, []uint{p.ID}, idx.indexed)
	evs := f.events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TopicProducts, evs[0].Topic)
	assert.Equal(t, "product_created", evs[0].Event.(events.ProductEvent).Type)
}

func TestCatalogService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.svc.Repo.DB, "Felga", "10.00", 1, true)

	_, err := f.svc.Update(ctx, 0, input("X", "1", 1))
	assert.Equal(t, "Product ID is required", err.Error())

	_, err = f.svc.Update(ctx, 999, input("", "0", -1))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Update(ctx, p.ID, input("Felga", "0", 1))
	assert.Equal(t, "Price must be greater than 0", err.Error())

	in := input("Felga R17", "12.50", 9)
	in.Active = false
	updated, err := f.svc.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Felga R17", updated.Name)

	stored, err := f.svc.Get(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.Stock)
	assert.False(t, stored.Active)
	assert.Equal(t, "12.50", stored.Price.StringFixed(2))
}

func TestCatalogService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idx := &fakeIndex{}
	f.svc.Index = idx

	p, err := f.svc.Create(ctx, input("Felga", "10.00", 1), bytes.NewReader(pngBytes))
	require.NoError(t, err)
	path := filepath.Join(f.dir, filepath.Base(*p.ImageURL))

	require.NoError(t, f.svc.Delete(ctx, p.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []uint{p.ID}, idx.deleted)

	err = f.svc.Delete(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCatalogService_Delete_ImageFailureDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("Felga", "10.00", 1), bytes.NewReader(pngBytes))
	require.NoError(t, err)

	f.svc.Images = failingStore{ImageStore: f.svc.Images}
	require.NoError(t, f.svc.Delete(ctx, p.ID))

	_, err = f.svc.Get(ctx, p.ID, true)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
