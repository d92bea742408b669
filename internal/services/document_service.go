package services

import (
	"context"
	"errors"
	"log/slog"

	"collab-service/internal/adapters/kafka"
	"collab-service/internal/adapters/storage"
	"collab-service/internal/models"
	"collab-service/internal/repositories/postgres"

	"gorm.io/gorm"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNotDocumentOwner = errors.New("not the document owner")
)

// DocumentService is the persistence collaborator: the editor calls the save
// path on its own timer, completely outside the relay's control flow. The
// relay never invokes it and never blocks on it.
type DocumentService struct {
	repo     *postgres.DocumentRepository
	archive  *storage.SnapshotStore  // optional
	activity *kafka.ActivityProducer // optional
	log      *slog.Logger
}

func NewDocumentService(repo *postgres.DocumentRepository, archive *storage.SnapshotStore, activity *kafka.ActivityProducer, log *slog.Logger) *DocumentService {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentService{
		repo:     repo,
		archive:  archive,
		activity: activity,
		log:      log,
	}
}

func (s *DocumentService) Create(ownerID uint, req *models.CreateDocumentRequest) (*models.DocumentResponse, error) {
	doc := models.Document{
		OwnerID: ownerID,
		Title:   req.Title,
	}
	if err := s.repo.Create(&doc); err != nil {
		return nil, err
	}

	s.publishActivity(context.Background(), "document.created", doc.ID, ownerID)

	resp := doc.ToResponse(false)
	return &resp, nil
}

func (s *DocumentService) Get(id uint) (*models.DocumentResponse, error) {
	doc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	resp := doc.ToResponse(true)
	return &resp, nil
}

func (s *DocumentService) ListByOwner(ownerID uint) ([]models.DocumentResponse, error) {
	docs, err := s.repo.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].ToResponse(false))
	}
	return out, nil
}

// SaveSnapshot stores the latest full snapshot. The row is the durable truth;
// the object archive and the activity event are best effort and never fail
// the save.
func (s *DocumentService) SaveSnapshot(ctx context.Context, id, userID uint, content []byte) error {
	if err := s.repo.SaveSnapshot(id, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}

	if s.archive != nil {
		if object, err := s.archive.Put(ctx, id, content); err != nil {
			s.log.Warn("document.archive.failed", "documentID", id, "error", err)
		} else {
			s.log.Debug("document.archived", "documentID", id, "object", object)
		}
	}

	s.publishActivity(ctx, "document.saved", id, userID)
	return nil
}

func (s *DocumentService) Delete(id, userID uint) error {
	doc, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	if doc.OwnerID != userID {
		return ErrNotDocumentOwner
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.publishActivity(context.Background(), "document.deleted", id, userID)
	return nil
}

func (s *DocumentService) publishActivity(ctx context.Context, kind string, docID, userID uint) {
	if s.activity == nil {
		return
	}
	ev := kafka.ActivityEvent{Kind: kind, DocumentID: docID, UserID: userID}
	if err := s.activity.Publish(ctx, ev); err != nil {
		s.log.Warn("document.activity.failed", "kind", kind, "documentID", docID, "error", err)
	}
}
