package repository

import (
	"context"
	"fmt"

	"warbler/internal/database"
	"warbler/internal/models"
	"warbler/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EdgeRepository stores directed, typed edges with per-relation uniqueness.
type EdgeRepository interface {
	AddEdge(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) (*models.Edge, error)
	RemoveEdge(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) error
	Get(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) (*models.Edge, error)
	EdgesFrom(ctx context.Context, subjectID uint, kind models.EdgeKind, limit int) ([]models.Edge, error)
	EdgesTo(ctx context.Context, objectID uint, kind models.EdgeKind, limit int) ([]models.Edge, error)
	ObjectIDsFrom(ctx context.Context, subjectID uint, kind models.EdgeKind) ([]uint, error)
	MatchObjects(ctx context.Context, subjectID uint, kind models.EdgeKind, objectIDs []uint) ([]uint, error)
	EdgesBetween(ctx context.Context, subjectIDs, objectIDs []uint, kind models.EdgeKind) ([]models.Edge, error)
}

// edgeRepository implements EdgeRepository
type edgeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewEdgeRepository creates a new edge repository
func NewEdgeRepository(db *gorm.DB) EdgeRepository {
	return &edgeRepository{db: db, log: observability.NewRepoLogger("edges")}
}

func validateEdge(subjectID, objectID uint, kind models.EdgeKind) error {
	if !kind.Valid() {
		return models.NewInvalidReferenceError(fmt.Sprintf("unknown edge kind %q", kind))
	}
	if subjectID == 0 || objectID == 0 {
		return models.NewInvalidReferenceError("edge endpoints must be non-zero ids")
	}
	if kind == models.EdgeFollow && subjectID == objectID {
		return models.NewInvalidReferenceError("users cannot follow themselves")
	}
	return nil
}

// AddEdge inserts the edge or returns Conflict when it already exists. The
// unique index decides; there is no read before the write.
func (r *edgeRepository) AddEdge(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) (*models.Edge, error) {
	if err := validateEdge(subjectID, objectID, kind); err != nil {
		observability.RecordEdgeMutation(string(kind), "add", "invalid")
		return nil, err
	}
	defer observability.TrackQuery("insert", "edges")()

	edge := &models.Edge{Kind: kind, SubjectID: subjectID, ObjectID: objectID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edge)
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "add_edge")
		observability.RecordEdgeMutation(string(kind), "add", "error")
		return nil, database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		observability.RecordEdgeMutation(string(kind), "add", "conflict")
		return nil, models.NewConflictError(fmt.Sprintf("%s edge %d -> %d already exists", kind, subjectID, objectID))
	}

	observability.RecordEdgeMutation(string(kind), "add", "created")
	r.log.LogMutation(ctx, "add_edge", "kind", kind, "subject_id", subjectID, "object_id", objectID)
	return edge, nil
}

// RemoveEdge deletes the edge or returns NotFound when it is absent.
func (r *edgeRepository) RemoveEdge(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) error {
	if !kind.Valid() {
		return models.NewInvalidReferenceError(fmt.Sprintf("unknown edge kind %q", kind))
	}
	defer observability.TrackQuery("delete", "edges")()

	result := r.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ? AND object_id = ?", kind, subjectID, objectID).
		Delete(&models.Edge{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "remove_edge")
		observability.RecordEdgeMutation(string(kind), "remove", "error")
		return database.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		observability.RecordEdgeMutation(string(kind), "remove", "not_found")
		return models.NewNotFoundError(string(kind)+" edge", fmt.Sprintf("%d->%d", subjectID, objectID))
	}

	observability.RecordEdgeMutation(string(kind), "remove", "deleted")
	r.log.LogMutation(ctx, "remove_edge", "kind", kind, "subject_id", subjectID, "object_id", objectID)
	return nil
}

func (r *edgeRepository) Get(ctx context.Context, subjectID, objectID uint, kind models.EdgeKind) (*models.Edge, error) {
	var edge models.Edge
	err := r.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ? AND object_id = ?", kind, subjectID, objectID).
		First(&edge).Error
	if err != nil {
		return nil, lookupError(err, string(kind)+" edge", fmt.Sprintf("%d->%d", subjectID, objectID))
	}
	return &edge, nil
}

// EdgesFrom lists edges leaving subjectID, newest first. limit <= 0 means all.
func (r *edgeRepository) EdgesFrom(ctx context.Context, subjectID uint, kind models.EdgeKind, limit int) ([]models.Edge, error) {
	defer observability.TrackQuery("select", "edges")()

	var edges []models.Edge
	q := r.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ?", kind, subjectID).
		Order("created_at DESC").
		Order("id DESC")
	if err := limitQuery(q, limit).Find(&edges).Error; err != nil {
		return nil, database.Classify(err)
	}
	return edges, nil
}

// EdgesTo lists edges arriving at objectID, newest first. limit <= 0 means all.
func (r *edgeRepository) EdgesTo(ctx context.Context, objectID uint, kind models.EdgeKind, limit int) ([]models.Edge, error) {
	defer observability.TrackQuery("select", "edges")()

	var edges []models.Edge
	q := r.db.WithContext(ctx).
		Where("kind = ? AND object_id = ?", kind, objectID).
		Order("created_at DESC").
		Order("id DESC")
	if err := limitQuery(q, limit).Find(&edges).Error; err != nil {
		return nil, database.Classify(err)
	}
	return edges, nil
}

// ObjectIDsFrom returns every object id subjectID points at.
func (r *edgeRepository) ObjectIDsFrom(ctx context.Context, subjectID uint, kind models.EdgeKind) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Edge{}).
		Where("kind = ? AND subject_id = ?", kind, subjectID).
		Pluck("object_id", &ids).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return ids, nil
}

// MatchObjects returns the subset of objectIDs that subjectID has an edge to.
func (r *edgeRepository) MatchObjects(ctx context.Context, subjectID uint, kind models.EdgeKind, objectIDs []uint) ([]uint, error) {
	if subjectID == 0 || len(objectIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Edge{}).
		Where("kind = ? AND subject_id = ? AND object_id IN ?", kind, subjectID, objectIDs).
		Pluck("object_id", &ids).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return ids, nil
}

// EdgesBetween returns all edges of kind from any of subjectIDs to any of
// objectIDs, newest first.
func (r *edgeRepository) EdgesBetween(ctx context.Context, subjectIDs, objectIDs []uint, kind models.EdgeKind) ([]models.Edge, error) {
	if len(subjectIDs) == 0 || len(objectIDs) == 0 {
		return []models.Edge{}, nil
	}
	var edges []models.Edge
	err := r.db.WithContext(ctx).
		Where("kind = ? AND subject_id IN ? AND object_id IN ?", kind, subjectIDs, objectIDs).
		Order("created_at DESC").
		Order("id DESC").
		Find(&edges).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return edges, nil
}
