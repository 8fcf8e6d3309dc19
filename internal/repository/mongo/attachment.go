package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AttachmentRepository implements domain.AttachmentRepository on MongoDB.
// Binary payloads stay out of the relational store; each attachment is one
// document keyed by a uuid string id.
type AttachmentRepository struct {
	coll *mongo.Collection
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(client *Client) *AttachmentRepository {
	return &AttachmentRepository{coll: client.Collection()}
}

type attachmentDoc struct {
	ID        string             `bson:"_id"`
	ChatID    string             `bson:"chat_id"`
	UserID    string             `bson:"user_id"`
	Filename  string             `bson:"filename,omitempty"`
	MediaType string             `bson:"media_type"`
	Data      primitive.Binary   `bson:"data"`
	CreatedAt primitive.DateTime `bson:"created_at"`
}

func (d *attachmentDoc) toDomain() (*domain.Attachment, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid attachment id %q: %w", d.ID, err)
	}
	chatID, err := uuid.Parse(d.ChatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", d.ChatID, err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.UserID, err)
	}
	return &domain.Attachment{
		ID:        id,
		ChatID:    chatID,
		UserID:    userID,
		Filename:  d.Filename,
		MediaType: d.MediaType,
		Data:      d.Data.Data,
		CreatedAt: d.CreatedAt.Time().UTC(),
	}, nil
}

func (r *AttachmentRepository) Insert(ctx context.Context, a *domain.Attachment) error {
	doc := attachmentDoc{
		ID:        a.ID.String(),
		ChatID:    a.ChatID.String(),
		UserID:    a.UserID.String(),
		Filename:  a.Filename,
		MediaType: a.MediaType,
		Data:      primitive.Binary{Subtype: 0x00, Data: a.Data},
		CreatedAt: primitive.NewDateTimeFromTime(a.CreatedAt),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) CountByChat(ctx context.Context, chatID uuid.UUID) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"chat_id": chatID.String()})
	if err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return count, nil
}

func (r *AttachmentRepository) ExistsByChat(ctx context.Context, chatID uuid.UUID) (bool, error) {
	opts := options.Count().SetLimit(1)
	count, err := r.coll.CountDocuments(ctx, bson.M{"chat_id": chatID.String()}, opts)
	if err != nil {
		return false, fmt.Errorf("failed to check attachments: %w", err)
	}
	return count > 0, nil
}

// ListMetaByChat returns metadata only, chronological ascending.
func (r *AttachmentRepository) ListMetaByChat(ctx context.Context, chatID uuid.UUID) ([]domain.AttachmentMeta, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"data": 0})

	cursor, err := r.coll.Find(ctx, bson.M{"chat_id": chatID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer cursor.Close(ctx)

	var metas []domain.AttachmentMeta
	for cursor.Next(ctx) {
		var doc attachmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode attachment: %w", err)
		}
		a, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		metas = append(metas, a.Meta())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return metas, nil
}

func (r *AttachmentRepository) GetByID(ctx context.Context, chatID, id uuid.UUID) (*domain.Attachment, error) {
	filter := bson.M{"_id": id.String(), "chat_id": chatID.String()}
	var doc attachmentDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return doc.toDomain()
}

// GetLatest returns the most recently created attachment for the chat.
func (r *AttachmentRepository) GetLatest(ctx context.Context, chatID uuid.UUID) (*domain.Attachment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var doc attachmentDoc
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID.String()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrAttachmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attachment: %w", err)
	}
	return doc.toDomain()
}

func (r *AttachmentRepository) DeleteByID(ctx context.Context, chatID, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "chat_id": chatID.String()})
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}

func (r *AttachmentRepository) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"chat_id": chatID.String()}); err != nil {
		return fmt.Errorf("failed to delete chat attachments: %w", err)
	}
	return nil
}

// EnsureIndexes creates the chat_id + created_at index used by every listing
// and latest-fetch query.
func (r *AttachmentRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create attachment index: %w", err)
	}
	return nil
}
