package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marsprotocol/vault-engine/pkg/database/query"
	"github.com/marsprotocol/vault-engine/pkg/mars/data/position"
	"github.com/marsprotocol/vault-engine/pkg/pointer"
)

func RunTests(t *testing.T, s position.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s position.Store){
		testRoundTrip,
		testUpdateHappyPath,
		testUpdateStaleRecord,
		testPendingShares,
		testGetAllByOwner,
		testGetAllByPhase,
		testCountByPhase,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s position.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.Get(ctx, "test_owner", "test_vault")
		require.Error(t, err)
		assert.Equal(t, position.ErrNotFound, err)
		assert.Nil(t, actual)

		expected := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:        position.PhaseStaked,
			SharesAmount: 12345,

			ExitRequested: true,

			LastSignature: pointer.String("test_signature"),
		}
		err = s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)
		assert.False(t, expected.CreatedAt.IsZero())
		assert.False(t, expected.LastUpdatedAt.IsZero())

		actual, err = s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		_, err = s.Get(ctx, "test_owner", "other_vault")
		assert.Equal(t, position.ErrNotFound, err)
	})
}

func testUpdateHappyPath(t *testing.T, s position.Store) {
	t.Run("testUpdateHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:        position.PhaseStaked,
			SharesAmount: 100,
		}
		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Version)

		expected.Phase = position.PhaseUnstakeRequested
		expected.LastSignature = pointer.String("test_signature_1")
		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 2, expected.Version)

		actual, err := s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		actual.Phase = position.PhaseIdle
		actual.SharesAmount = 0
		actual.LastSignature = nil
		require.NoError(t, s.Save(ctx, actual))
		assert.EqualValues(t, 3, actual.Version)

		fetched, err := s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assertEquivalentRecords(t, actual, fetched)
		assert.Nil(t, fetched.LastSignature)
	})
}

func testUpdateStaleRecord(t *testing.T, s position.Store) {
	t.Run("testUpdateStaleRecord", func(t *testing.T) {
		ctx := context.Background()

		expected := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:        position.PhaseStaked,
			SharesAmount: 100,
		}
		require.NoError(t, s.Save(ctx, expected))

		stale := expected.Clone()

		expected.Phase = position.PhaseUnstakeRequested
		require.NoError(t, s.Save(ctx, expected))

		stale.Phase = position.PhaseIdle
		stale.SharesAmount = 0
		assert.Equal(t, position.ErrStaleVersion, s.Save(ctx, &stale))

		actual, err := s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assert.Equal(t, position.PhaseUnstakeRequested, actual.Phase)
		assert.EqualValues(t, 2, actual.Version)

		// A fresh record for an existing position is stale by definition.
		duplicate := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:        position.PhaseStaked,
			SharesAmount: 1,
		}
		assert.Equal(t, position.ErrStaleVersion, s.Save(ctx, duplicate))
	})
}

func testPendingShares(t *testing.T, s position.Store) {
	t.Run("testPendingShares", func(t *testing.T) {
		ctx := context.Background()

		unconfirmed := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:         position.PhaseStaked,
			StakeBaseline: 500,
		}
		assert.Error(t, s.Save(ctx, unconfirmed))

		expected := &position.Record{
			Owner:   "test_owner",
			VaultId: "test_vault",

			Phase:         position.PhaseStaked,
			StakeBaseline: 500,

			LastSignature: pointer.String("test_signature"),
		}
		require.NoError(t, s.Save(ctx, expected))

		actual, err := s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assert.True(t, actual.SharesPending())
		assertEquivalentRecords(t, expected, actual)

		// The baseline only lives while shares are pending
		actual.SharesAmount = 250
		assert.Error(t, s.Save(ctx, actual))

		actual.StakeBaseline = 0
		require.NoError(t, s.Save(ctx, actual))

		fetched, err := s.Get(ctx, "test_owner", "test_vault")
		require.NoError(t, err)
		assert.False(t, fetched.SharesPending())
		assertEquivalentRecords(t, actual, fetched)
	})
}

func testGetAllByOwner(t *testing.T, s position.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByOwner(ctx, "test_owner")
		assert.Equal(t, position.ErrNotFound, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, &position.Record{
				Owner:        "test_owner",
				VaultId:      fmt.Sprintf("test_vault_%d", i),
				Phase:        position.PhaseStaked,
				SharesAmount: uint64(i + 1),
			}))
		}
		require.NoError(t, s.Save(ctx, &position.Record{
			Owner:   "other_owner",
			VaultId: "test_vault_0",
			Phase:   position.PhaseIdle,
		}))

		actual, err := s.GetAllByOwner(ctx, "test_owner")
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for _, record := range actual {
			assert.Equal(t, "test_owner", record.Owner)
		}
	})
}

func testGetAllByPhase(t *testing.T, s position.Store) {
	t.Run("testGetAllByPhase", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, position.ErrNotFound, err)

		var expected []*position.Record
		for i := 0; i < 10; i++ {
			record := &position.Record{
				Owner:        fmt.Sprintf("test_owner_%d", i),
				VaultId:      "test_vault",
				Phase:        position.PhaseUnstakeRequested,
				SharesAmount: uint64(i + 1),
			}
			if i%2 == 1 {
				record.Phase = position.PhaseStaked
			}
			require.NoError(t, s.Save(ctx, record))

			if record.Phase == position.PhaseUnstakeRequested {
				expected = append(expected, record)
			}
		}

		actual, err := s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, expected[i], record)
		}

		actual, err = s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[0].Id, actual[0].Id)
		assert.Equal(t, expected[1].Id, actual[1].Id)

		actual, err = s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.ToCursor(actual[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
		assert.Equal(t, expected[2].Id, actual[0].Id)

		actual, err = s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.EmptyCursor, 2, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 2)
		assert.Equal(t, expected[4].Id, actual[0].Id)
		assert.Equal(t, expected[3].Id, actual[1].Id)

		_, err = s.GetAllByPhase(ctx, position.PhaseUnstakeRequested, query.ToCursor(expected[4].Id), 10, query.Ascending)
		assert.Equal(t, position.ErrNotFound, err)
	})
}

func testCountByPhase(t *testing.T, s position.Store) {
	t.Run("testCountByPhase", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByPhase(ctx, position.PhaseStaked)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 4; i++ {
			phase := position.PhaseStaked
			if i == 3 {
				phase = position.PhaseUnstakeClaimable
			}
			require.NoError(t, s.Save(ctx, &position.Record{
				Owner:        fmt.Sprintf("test_owner_%d", i),
				VaultId:      "test_vault",
				Phase:        phase,
				SharesAmount: 1,
			}))
		}

		count, err = s.CountByPhase(ctx, position.PhaseStaked)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.CountByPhase(ctx, position.PhaseUnstakeClaimable)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.CountByPhase(ctx, position.PhaseWithdrawn)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *position.Record) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.VaultId, obj2.VaultId)
	assert.Equal(t, obj1.Phase, obj2.Phase)
	assert.Equal(t, obj1.SharesAmount, obj2.SharesAmount)
	assert.Equal(t, obj1.StakeBaseline, obj2.StakeBaseline)
	assert.Equal(t, obj1.ExitRequested, obj2.ExitRequested)
	assert.EqualValues(t, obj1.LastSignature, obj2.LastSignature)
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
	assert.Equal(t, obj1.LastUpdatedAt.Unix(), obj2.LastUpdatedAt.Unix())
}
