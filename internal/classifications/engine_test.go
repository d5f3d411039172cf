package classifications_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/BerndBr/taskana/internal/classifications"
	"github.com/BerndBr/taskana/pkg/formatting"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func seed() []classifications.Classification {
	created := time.Date(2016, 5, 12, 10, 12, 12, 0, time.UTC)
	mk := func(id, key, domain, parentID, parentKey, typ string) classifications.Classification {
		return classifications.Classification{
			ID:              id,
			Key:             key,
			Domain:          domain,
			ParentID:        parentID,
			ParentKey:       parentKey,
			Type:            typ,
			Category:        "EXTERNAL",
			IsValidInDomain: true,
			Created:         created,
			Modified:        created,
			Name:            key,
		}
	}
	return []classifications.Classification{
		mk("CLI:A-T2000", "T2000", "DOMAIN_A", "", "", "TASK"),
		mk("CLI:A-L10000", "L10000", "DOMAIN_A", "", "", "TASK"),
		mk("CLI:A-L11010", "L11010", "DOMAIN_A", "CLI:A-L10000", "L10000", "TASK"),
		mk("CLI:A-L110102", "L110102", "DOMAIN_A", "CLI:A-L11010", "L11010", "TASK"),
		mk("CLI:A-L110105", "L110105", "DOMAIN_A", "CLI:A-L11010", "L11010", "TASK"),
		mk("CLI:A-DOC", "L20000", "DOMAIN_A", "", "", "DOCUMENT"),
		mk("CLI:B-T2000", "T2000", "DOMAIN_B", "", "", "TASK"),
	}
}

func newEngine() *classifications.Engine {
	n := 0
	return classifications.NewEngine(
		classifications.DefaultRules(),
		classifications.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("CLI:new-%d", n)
		}),
		classifications.WithClock(func() time.Time { return fixedNow }),
	)
}

type EngineSuite struct {
	suite.Suite
	ctx    context.Context
	store  *classifications.MemoryStore
	engine *classifications.Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = classifications.NewMemoryStore(seed()...)
	s.engine = newEngine()
}

func (s *EngineSuite) merge(opts classifications.ImportOptions, batch ...classifications.Record) (*classifications.Result, error) {
	var result *classifications.Result
	err := s.store.WithTx(s.ctx, func(st classifications.Store) error {
		r, err := s.engine.Merge(s.ctx, st, batch, opts)
		result = r
		return err
	})
	return result, err
}

func (s *EngineSuite) importBatch(batch ...classifications.Record) (*classifications.Result, error) {
	return s.merge(classifications.ImportOptions{}, batch...)
}

func (s *EngineSuite) get(key, domain string) classifications.Classification {
	c, ok, err := s.store.FindByKey(s.ctx, key, domain)
	s.Require().NoError(err)
	s.Require().True(ok, "classification %s/%s not stored", domain, key)
	return c
}

// assertRejected checks err matches target and that the store is unchanged.
func (s *EngineSuite) assertRejected(before []classifications.Classification, err, target error) {
	s.Require().Error(err)
	s.ErrorIs(err, target)
	s.Equal(before, s.store.All())
}

func (s *EngineSuite) TestCrossBatchParentResolution() {
	result, err := s.importBatch(
		classifications.Record{Key: "C", Domain: "DOMAIN_A", ParentKey: "P"},
		classifications.Record{Key: "P", Domain: "DOMAIN_A"},
	)
	s.Require().NoError(err)
	s.Equal(2, result.Created)

	parent := s.get("P", "DOMAIN_A")
	child := s.get("C", "DOMAIN_A")
	s.Equal(parent.ID, child.ParentID)
	s.Equal("P", child.ParentKey)
	s.Empty(parent.ParentID)
}

func (s *EngineSuite) TestParentChainAcrossAliases() {
	_, err := s.importBatch(
		classifications.Record{ID: "grandchildId1", Key: "ImportKey9", Domain: "DOMAIN_A", ParentID: "childId1", ParentKey: "ImportKey7"},
		classifications.Record{ID: "childId2", Key: "ImportKey8", Domain: "DOMAIN_A", ParentID: "parentId"},
		classifications.Record{ID: "childId1", Key: "ImportKey7", Domain: "DOMAIN_A", ParentKey: "ImportKey6"},
		classifications.Record{ID: "parentId", Key: "ImportKey6", Domain: "DOMAIN_A"},
	)
	s.Require().NoError(err)

	parent := s.get("ImportKey6", "DOMAIN_A")
	child := s.get("ImportKey7", "DOMAIN_A")
	sibling := s.get("ImportKey8", "DOMAIN_A")
	grandchild := s.get("ImportKey9", "DOMAIN_A")

	s.NotEqual("parentId", parent.ID, "batch aliases are replaced by generated ids")
	s.Equal(parent.ID, child.ParentID)
	s.Equal(parent.ID, sibling.ParentID)
	s.Equal(child.ID, grandchild.ParentID)
}

func (s *EngineSuite) TestImportDocumentParentAndChild() {
	doc := `{
		"classifications": [
			{"classification_id": "parentId", "key": "ImportKey6", "domain": "DOMAIN_A", "parent_id": null, "parent_key": null, "priority": 0},
			{"classification_id": "childId1", "key": "ImportKey7", "domain": "DOMAIN_A", "parent_id": null, "parent_key": "ImportKey6", "priority": 0},
			{"classification_id": "childId2", "key": "ImportKey8", "domain": "DOMAIN_A", "parent_id": "parentId", "parent_key": null, "priority": 0},
			{"classification_id": "grandchildId1", "key": "ImportKey9", "domain": "DOMAIN_A", "parent_id": "childId1", "parent_key": "ImportKey7", "priority": 0},
			{"classification_id": "grandchild2", "key": "ImportKey10", "domain": "DOMAIN_A", "parent_id": null, "parent_key": "ImportKey7", "priority": 0}
		]
	}`

	batch, err := classifications.DecodeDefinitions([]byte(doc), formatting.FormatJSON)
	s.Require().NoError(err)
	s.Require().Len(batch, 5)

	result, err := s.importBatch(batch...)
	s.Require().NoError(err)
	s.Equal(5, result.Created)

	parent := s.get("ImportKey6", "DOMAIN_A")
	child := s.get("ImportKey7", "DOMAIN_A")
	grandchild := s.get("ImportKey9", "DOMAIN_A")

	s.Equal(parent.ID, child.ParentID)
	s.Equal(parent.ID, s.get("ImportKey8", "DOMAIN_A").ParentID)
	s.Equal(child.ID, grandchild.ParentID)
	s.Equal("ImportKey7", grandchild.ParentKey)
	s.Equal(child.ID, s.get("ImportKey10", "DOMAIN_A").ParentID)
}

func (s *EngineSuite) TestImportDocumentParentByKeyStaysInDomain() {
	doc := `
classifications:
  - classification_id: parent
    key: ImportKey11
    domain: DOMAIN_A
    custom_1: parent is correct
  - classification_id: wrongParent
    key: ImportKey11
    domain: DOMAIN_B
  - classification_id: child
    key: ImportKey13
    domain: DOMAIN_A
    parent_key: ImportKey11
`
	batch, err := classifications.DecodeDefinitions([]byte(doc), formatting.FormatYAML)
	s.Require().NoError(err)

	_, err = s.importBatch(batch...)
	s.Require().NoError(err)

	right := s.get("ImportKey11", "DOMAIN_A")
	wrong := s.get("ImportKey11", "DOMAIN_B")
	child := s.get("ImportKey13", "DOMAIN_A")

	s.Equal("parent is correct", right.Custom1)
	s.Equal(right.ID, child.ParentID)
	s.NotEqual(wrong.ID, child.ParentID)
}

func (s *EngineSuite) TestPaddedKeyMatchesStored() {
	_, err := s.importBatch(classifications.Record{ID: "  ", Key: " L10000 ", Domain: "DOMAIN_A", Name: "renamed"})
	s.Require().NoError(err)

	stored := s.get("L10000", "DOMAIN_A")
	s.Equal("CLI:A-L10000", stored.ID)
	s.Equal("renamed", stored.Name)
	s.Len(s.store.All(), len(seed()))
}

func (s *EngineSuite) TestDomainScopedKeyResolution() {
	_, err := s.importBatch(
		classifications.Record{Key: "K", Domain: "DOMAIN_A", Custom1: "right parent"},
		classifications.Record{Key: "K", Domain: "DOMAIN_B"},
		classifications.Record{Key: "CHILD", Domain: "DOMAIN_A", ParentKey: "K"},
	)
	s.Require().NoError(err)

	right := s.get("K", "DOMAIN_A")
	wrong := s.get("K", "DOMAIN_B")
	child := s.get("CHILD", "DOMAIN_A")
	s.Equal(right.ID, child.ParentID)
	s.NotEqual(wrong.ID, child.ParentID)
}

func (s *EngineSuite) TestKeyNeverResolvesAcrossDomains() {
	before := s.store.All()
	_, err := s.importBatch(
		classifications.Record{Key: "ORPHAN", Domain: "DOMAIN_B", ParentKey: "L10000"},
	)
	s.assertRejected(before, err, classifications.ErrValidation)
}

func (s *EngineSuite) TestParentByIdentifierMayCrossDomains() {
	_, err := s.importBatch(
		classifications.Record{Key: "CROSS", Domain: "DOMAIN_B", ParentID: "CLI:A-L10000"},
	)
	s.Require().NoError(err)
	s.Equal("CLI:A-L10000", s.get("CROSS", "DOMAIN_B").ParentID)
}

func (s *EngineSuite) TestDuplicateRejection() {
	before := s.store.All()
	rec := classifications.Record{ID: "id1", Key: "ImportKey3", Domain: "DOMAIN_A"}

	_, err := s.importBatch(rec, rec)
	s.assertRejected(before, err, classifications.ErrConflict)

	var conflict *classifications.ConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal([]string{"DOMAIN_A/ImportKey3"}, conflict.Keys)
}

func (s *EngineSuite) TestDuplicateOfStoredRecordRejected() {
	before := s.store.All()
	existing := s.get("L110105", "DOMAIN_A").ToRecord()

	_, err := s.importBatch(existing, existing)
	s.assertRejected(before, err, classifications.ErrConflict)
}

func (s *EngineSuite) TestIdentifierCollision() {
	before := s.store.All()
	_, err := s.importBatch(
		classifications.Record{ID: "same", Key: "A1", Domain: "DOMAIN_A"},
		classifications.Record{ID: "same", Key: "A2", Domain: "DOMAIN_A"},
	)
	s.assertRejected(before, err, classifications.ErrConflict)
}

func (s *EngineSuite) TestMissingFieldRejection() {
	tests := []struct {
		name   string
		record classifications.Record
	}{
		{"missing key", classifications.Record{Domain: "DOMAIN_A"}},
		{"blank key", classifications.Record{Key: "  ", Domain: "DOMAIN_A"}},
		{"missing domain", classifications.Record{Key: "one"}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			before := s.store.All()
			_, err := s.importBatch(
				classifications.Record{Key: "VALID", Domain: "DOMAIN_A"},
				tt.record,
			)
			s.assertRejected(before, err, classifications.ErrValidation)
		})
	}
}

func (s *EngineSuite) TestTypeImmutability() {
	before := s.store.All()
	rec := s.get("T2000", "DOMAIN_A").ToRecord()
	rec.Type = "DOCUMENT"

	_, err := s.importBatch(rec)
	s.assertRejected(before, err, classifications.ErrValidation)
	s.Contains(err.Error(), "type change forbidden")
	s.Equal("TASK", s.get("T2000", "DOMAIN_A").Type)
}

func (s *EngineSuite) TestTypeImmutabilityByKey() {
	before := s.store.All()
	_, err := s.importBatch(classifications.Record{Key: "L20000", Domain: "DOMAIN_A", Type: "TASK"})
	s.assertRejected(before, err, classifications.ErrValidation)
}

func (s *EngineSuite) TestUnknownTypeRejected() {
	before := s.store.All()
	_, err := s.importBatch(classifications.Record{Key: "NEW", Domain: "DOMAIN_A", Type: "CHORE"})
	s.assertRejected(before, err, classifications.ErrValidation)
}

func (s *EngineSuite) TestIdentifierKeyMismatch() {
	before := s.store.All()
	_, err := s.importBatch(classifications.Record{ID: "CLI:A-T2000", Key: "OTHER", Domain: "DOMAIN_A"})
	s.assertRejected(before, err, classifications.ErrValidation)
}

func (s *EngineSuite) TestUnresolvedParentIsAtomic() {
	before := s.store.All()
	_, err := s.importBatch(
		classifications.Record{Key: "FINE", Domain: "DOMAIN_A"},
		classifications.Record{Key: "LOST", Domain: "DOMAIN_A", ParentKey: "NOPE"},
	)
	s.assertRejected(before, err, classifications.ErrValidation)

	var verr *classifications.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("LOST", verr.Key)
	s.Contains(verr.Reason, "NOPE")
}

func (s *EngineSuite) TestParentReferenceMismatch() {
	before := s.store.All()
	_, err := s.importBatch(classifications.Record{
		Key:       "MISMATCH",
		Domain:    "DOMAIN_A",
		ParentID:  "CLI:A-T2000",
		ParentKey: "L10000",
	})
	s.assertRejected(before, err, classifications.ErrValidation)
}

func (s *EngineSuite) TestMatchingParentReferences() {
	_, err := s.importBatch(classifications.Record{
		ID:        "classificationId_",
		Key:       "key drelf",
		Domain:    "DOMAIN_A",
		ParentID:  "CLI:A-T2000",
		ParentKey: "T2000",
		Category:  "MANUAL",
		Type:      "TASK",
		Priority:  4,
	})
	s.Require().NoError(err)

	c := s.get("key drelf", "DOMAIN_A")
	s.Equal("CLI:A-T2000", c.ParentID)
	s.Equal("MANUAL", c.Category)
	s.Equal(4, c.Priority)
}

func (s *EngineSuite) TestCycles() {
	tests := []struct {
		name  string
		batch []classifications.Record
	}{
		{
			name:  "self reference by key",
			batch: []classifications.Record{{Key: "SELF", Domain: "DOMAIN_A", ParentKey: "SELF"}},
		},
		{
			name:  "self reference by alias",
			batch: []classifications.Record{{ID: "me", Key: "SELF", Domain: "DOMAIN_A", ParentID: "me"}},
		},
		{
			name: "batch cycle",
			batch: []classifications.Record{
				{Key: "X", Domain: "DOMAIN_A", ParentKey: "Y"},
				{Key: "Y", Domain: "DOMAIN_A", ParentKey: "Z"},
				{Key: "Z", Domain: "DOMAIN_A", ParentKey: "X"},
			},
		},
		{
			name: "moved beneath stored child",
			batch: []classifications.Record{
				{ID: "CLI:A-L11010", Key: "L11010", Domain: "DOMAIN_A", ParentKey: "L110102"},
			},
		},
		{
			name: "moved beneath stored grandchild",
			batch: []classifications.Record{
				{Key: "L10000", Domain: "DOMAIN_A", ParentID: "CLI:A-L110105"},
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			before := s.store.All()
			_, err := s.importBatch(tt.batch...)
			s.assertRejected(before, err, classifications.ErrConflict)
			s.Contains(err.Error(), "cycle")
		})
	}
}

func (s *EngineSuite) TestUpdateByKeyKeepsIdentity() {
	rec := classifications.Record{Key: "L110102", Domain: "DOMAIN_A", ParentKey: "L11010", Name: "first new Name"}
	_, err := s.importBatch(rec)
	s.Require().NoError(err)

	rec.Name = "second new Name"
	result, err := s.importBatch(rec)
	s.Require().NoError(err)

	s.Equal(0, result.Created)
	s.Equal(1, result.Updated)

	c := s.get("L110102", "DOMAIN_A")
	s.Equal("CLI:A-L110102", c.ID)
	s.Equal("second new Name", c.Name)
	s.Equal(fixedNow, c.Modified)
	s.Equal(time.Date(2016, 5, 12, 10, 12, 12, 0, time.UTC), c.Created)
}

func (s *EngineSuite) TestHookExistingChildToNewParent() {
	existing := s.get("L110102", "DOMAIN_A").ToRecord()
	existing.ParentID = "new Classification"
	existing.ParentKey = "newClass"

	_, err := s.importBatch(
		existing,
		classifications.Record{ID: "new Classification", Key: "newClass", Domain: "DOMAIN_A", ParentKey: "L11010"},
	)
	s.Require().NoError(err)

	parent := s.get("L11010", "DOMAIN_A")
	fresh := s.get("newClass", "DOMAIN_A")
	moved := s.get("L110102", "DOMAIN_A")
	s.Equal(fresh.ID, moved.ParentID)
	s.Equal(parent.ID, fresh.ParentID)
}

func (s *EngineSuite) TestChangeAndClearParent() {
	child1 := s.get("L110105", "DOMAIN_A").ToRecord()
	child1.ParentID = "CLI:A-T2000"
	child1.ParentKey = "T2000"

	child2 := s.get("L110102", "DOMAIN_A").ToRecord()
	child2.ParentID = ""
	child2.ParentKey = ""

	_, err := s.importBatch(child1, child2)
	s.Require().NoError(err)

	s.Equal("T2000", s.get("L110105", "DOMAIN_A").ParentKey)
	cleared := s.get("L110102", "DOMAIN_A")
	s.Empty(cleared.ParentID)
	s.Empty(cleared.ParentKey)
}

func (s *EngineSuite) TestNewRecordDefaults() {
	_, err := s.importBatch(classifications.Record{Key: "PLAIN", Domain: "DOMAIN_C"})
	s.Require().NoError(err)

	c := s.get("PLAIN", "DOMAIN_C")
	s.Equal("CLI:new-1", c.ID)
	s.Equal(classifications.TypeTask, c.Type)
	s.Equal(classifications.DefaultCategory, c.Category)
	s.True(c.IsValidInDomain)
	s.Equal(fixedNow, c.Created)
}

func (s *EngineSuite) TestAbsentPolicy() {
	batch := []classifications.Record{
		{Key: "L10000", Domain: "DOMAIN_A"},
		{Key: "T2000", Domain: "DOMAIN_A"},
	}

	s.Run("keep", func() {
		result, err := s.importBatch(batch...)
		s.Require().NoError(err)
		s.Equal(0, result.Invalidated)
		s.True(s.get("L11010", "DOMAIN_A").IsValidInDomain)
	})

	s.Run("invalidate", func() {
		result, err := s.merge(classifications.ImportOptions{Absent: classifications.AbsentInvalidate}, batch...)
		s.Require().NoError(err)
		s.Equal(4, result.Invalidated)
		s.False(s.get("L11010", "DOMAIN_A").IsValidInDomain)
		s.True(s.get("L10000", "DOMAIN_A").IsValidInDomain)
		s.True(s.get("T2000", "DOMAIN_B").IsValidInDomain, "other domains are untouched")
	})
}

func (s *EngineSuite) TestUpsertOrderFollowsDependencies() {
	rec := &recordingStore{Store: s.store}
	_, err := s.engine.Merge(s.ctx, rec, []classifications.Record{
		{Key: "LEAF", Domain: "DOMAIN_A", ParentKey: "MID"},
		{Key: "MID", Domain: "DOMAIN_A", ParentKey: "TOP"},
		{Key: "TOP", Domain: "DOMAIN_A"},
	}, classifications.ImportOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"TOP", "MID", "LEAF"}, rec.keys)
}

func (s *EngineSuite) TestStoreFailure() {
	failing := &recordingStore{Store: s.store, failUpsert: errors.New("connection reset")}
	_, err := s.engine.Merge(s.ctx, failing, []classifications.Record{{Key: "X", Domain: "DOMAIN_A"}}, classifications.ImportOptions{})
	s.Require().Error(err)
	s.ErrorIs(err, classifications.ErrStoreFailure)

	var serr *classifications.StoreError
	s.Require().ErrorAs(err, &serr)
	s.Contains(serr.Op, "upsert")
}

func (s *EngineSuite) TestEmptyDomainExport() {
	items, err := s.store.ListByDomain(s.ctx, "ADdfe")
	s.Require().NoError(err)
	s.NotNil(items)
	s.Empty(items)
}

func (s *EngineSuite) TestIdempotence() {
	batch := []classifications.Record{
		{ID: "p", Key: "P", Domain: "DOMAIN_A", Name: "parent"},
		{Key: "C", Domain: "DOMAIN_A", ParentID: "p", ParentKey: "P"},
	}
	_, err := s.importBatch(batch...)
	s.Require().NoError(err)
	once := s.store.All()

	result, err := s.importBatch(batch...)
	s.Require().NoError(err)
	s.Equal(0, result.Created)
	s.Equal(2, result.Updated)
	s.Equal(once, s.store.All())
}

type recordingStore struct {
	classifications.Store
	keys       []string
	failUpsert error
}

func (r *recordingStore) Upsert(ctx context.Context, c classifications.Classification) (string, error) {
	if r.failUpsert != nil {
		return "", r.failUpsert
	}
	r.keys = append(r.keys, c.Key)
	return r.Store.Upsert(ctx, c)
}

func TestParseAbsentPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    classifications.AbsentPolicy
		wantErr bool
	}{
		{"", classifications.AbsentKeep, false},
		{"keep", classifications.AbsentKeep, false},
		{"invalidate", classifications.AbsentInvalidate, false},
		{"delete", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := classifications.ParseAbsentPolicy(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, classifications.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDomains(t *testing.T) {
	got := classifications.Domains([]classifications.Record{
		{Domain: "B"}, {Domain: "A"}, {Domain: "B"},
	})
	assert.Equal(t, []string{"A", "B"}, got)
}
