package branches

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumina-ims/lumina/internal/shared"
)

type fakeRepo struct {
	nextID   int64
	branches map[int64]*Branch
	products map[int64][]BranchProduct
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{branches: map[int64]*Branch{}, products: map[int64][]BranchProduct{}}
}

func (f *fakeRepo) List(_ context.Context) ([]Branch, error) {
	var out []Branch
	for _, b := range f.branches {
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*Branch, error) {
	if b, ok := f.branches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeRepo) Create(_ context.Context, in BranchInput) (*Branch, error) {
	f.nextID++
	b := &Branch{
		ID: f.nextID, Name: in.Name, Location: in.Location,
		Latitude: in.Latitude, Longitude: in.Longitude,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.branches[b.ID] = b
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, in BranchInput) (*Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	b.Name, b.Location, b.Latitude, b.Longitude = in.Name, in.Location, in.Latitude, in.Longitude
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.branches[id]; !ok {
		return shared.ErrNotFound
	}
	delete(f.branches, id)
	return nil
}

func (f *fakeRepo) ListProducts(_ context.Context, branchID int64) ([]BranchProduct, error) {
	return f.products[branchID], nil
}

func ptr(v float64) *float64 { return &v }

func TestBranchInputValidate(t *testing.T) {
	cases := []struct {
		name string
		in   BranchInput
		want error
	}{
		{"no coordinates", BranchInput{Name: "Main"}, nil},
		{"both coordinates", BranchInput{Name: "Main", Latitude: ptr(14.6), Longitude: ptr(121.0)}, nil},
		{"latitude only", BranchInput{Name: "Main", Latitude: ptr(14.6)}, ErrCoordinatePair},
		{"longitude only", BranchInput{Name: "Main", Longitude: ptr(121.0)}, ErrCoordinatePair},
		{"latitude out of range", BranchInput{Name: "Main", Latitude: ptr(91), Longitude: ptr(0)}, ErrCoordinateRange},
		{"longitude out of range", BranchInput{Name: "Main", Latitude: ptr(0), Longitude: ptr(181)}, ErrCoordinateRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestCreateRejectsHalfCoordinates(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.Create(context.Background(), "", BranchInput{Name: "Main", Latitude: ptr(14.6)})
	require.ErrorIs(t, err, ErrCoordinatePair)
}

func TestHaversine(t *testing.T) {
	// Manila to Quezon City, roughly 11km.
	d := Haversine(14.5995, 120.9842, 14.6760, 121.0437)
	require.InDelta(t, 10.7, d, 1.0)

	require.Zero(t, Haversine(14.5995, 120.9842, 14.5995, 120.9842))
}

func TestNearestOrdersByDistance(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	manila, err := svc.Create(context.Background(), "", BranchInput{Name: "Manila", Latitude: ptr(14.5995), Longitude: ptr(120.9842)})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "", BranchInput{Name: "Cebu", Latitude: ptr(10.3157), Longitude: ptr(123.8854)})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "", BranchInput{Name: "Quezon City", Latitude: ptr(14.6760), Longitude: ptr(121.0437)})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "", BranchInput{Name: "No Coordinates"})
	require.NoError(t, err)

	nearest, err := svc.Nearest(context.Background(), manila.ID)
	require.NoError(t, err)
	require.Len(t, nearest, 2)
	require.Equal(t, "Quezon City", nearest[0].Name)
	require.Equal(t, "Cebu", nearest[1].Name)
	require.Less(t, nearest[0].DistanceKm, nearest[1].DistanceKm)
}

func TestListProductsChecksBranch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.ListProducts(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)

	b, err := svc.Create(context.Background(), "", BranchInput{Name: "Main"})
	require.NoError(t, err)
	repo.products[b.ID] = []BranchProduct{{ProductID: 1, ProductName: "LED Bulb", Quantity: 10, Reserved: 3, Available: 7}}

	list, err := svc.ListProducts(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.EqualValues(t, 7, list[0].Available)
}
