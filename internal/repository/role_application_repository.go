package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/campus-access/internal/domain/model"
	"github.com/guttosm/campus-access/internal/rbac"
)

// RoleApplicationRepository implements RoleApplicationRepositoryInterface using MongoDB.
type RoleApplicationRepository struct {
	collection *mongo.Collection
}

// NewRoleApplicationRepository creates a new role application repository.
func NewRoleApplicationRepository(db *mongo.Database) *RoleApplicationRepository {
	return &RoleApplicationRepository{
		collection: db.Collection(CollectionRoleApplications),
	}
}

// Create inserts a new application.
func (r *RoleApplicationRepository) Create(ctx context.Context, app *model.RoleApplication) error {
	if app.ID.IsZero() {
		app.ID = primitive.NewObjectID()
	}
	if app.Documents == nil {
		app.Documents = []model.Document{}
	}
	_, err := r.collection.InsertOne(ctx, app)
	return mapWriteError(err)
}

// FindByID finds an application by ID.
func (r *RoleApplicationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.RoleApplication, error) {
	var app model.RoleApplication
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// FindByApplicant returns the applicant's applications, newest first.
func (r *RoleApplicationRepository) FindByApplicant(ctx context.Context, applicantID primitive.ObjectID) ([]*model.RoleApplication, error) {
	return r.find(ctx, bson.M{"applicant_id": applicantID}, options.Find().SetSort(newestFirst))
}

// FindByApplicantAndRole returns the applicant's applications for one role, newest first.
func (r *RoleApplicationRepository) FindByApplicantAndRole(ctx context.Context, applicantID primitive.ObjectID, role rbac.Role) ([]*model.RoleApplication, error) {
	return r.find(ctx, bson.M{"applicant_id": applicantID, "requested_role": role}, options.Find().SetSort(newestFirst))
}

// List returns one page of applications matching the filter and the total match count.
func (r *RoleApplicationRepository) List(ctx context.Context, f model.ApplicationFilter) ([]*model.RoleApplication, int64, error) {
	f.Normalize()

	filter := bson.M{}
	if f.ApplicantID != nil {
		filter["applicant_id"] = *f.ApplicantID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Role != "" {
		filter["requested_role"] = f.Role
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(f.Skip())).
		SetLimit(int64(f.Limit))
	apps, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// Transition atomically changes the status of an application that is still in from.
func (r *RoleApplicationRepository) Transition(ctx context.Context, id primitive.ObjectID, from, to model.ApplicationStatus, upd TransitionUpdate) (*model.RoleApplication, error) {
	set := bson.M{"status": to, "updated_at": upd.At}
	switch to {
	case model.StatusApproved, model.StatusRejected:
		set["reviewed_at"] = upd.At
		set["reviewed_by"] = upd.ReviewedBy
		set["admin_notes"] = upd.AdminNotes
	case model.StatusWithdrawn:
		set["withdrawn_at"] = upd.At
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var app model.RoleApplication
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		opts,
	).Decode(&app)
	if err == nil {
		return &app, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	existing, findErr := r.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, nil
	}
	return nil, ErrStateConflict
}

// RevertToPending restores a reviewed application to pending.
func (r *RoleApplicationRepository) RevertToPending(ctx context.Context, id primitive.ObjectID, from model.ApplicationStatus) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":   bson.M{"status": model.StatusPending},
			"$unset": bson.M{"reviewed_at": "", "reviewed_by": "", "admin_notes": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStateConflict
	}
	return nil
}

var newestFirst = bson.D{{Key: "applied_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *RoleApplicationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.RoleApplication, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	apps := []*model.RoleApplication{}
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}
