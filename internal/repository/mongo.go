package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kahvecikaan/photo-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	photosCollection = "photos"
	tagsCollection   = "tags"
)

// MongoStore owns the client connection and hands out the repositories
// backed by one database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    hclog.Logger
}

// ConnectMongo dials uri, checks the primary is reachable and makes sure
// the indexes the repositories rely on exist.
func ConnectMongo(ctx context.Context, uri, database string, logger hclog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database), log: logger}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", "database", database)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "githubLogin", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating users index: %w", err)
	}

	_, err = s.db.Collection(tagsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "photoID", Value: 1}, {Key: "githubLogin", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating tags index: %w", err)
	}
	return nil
}

// Disconnect closes the client, giving in-flight operations up to five seconds.
func (s *MongoStore) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Tests use it to clean up.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *MongoStore) Users() UserRepository {
	return &mongoUserRepository{col: s.db.Collection(usersCollection)}
}

func (s *MongoStore) Photos() PhotoRepository {
	return &mongoPhotoRepository{col: s.db.Collection(photosCollection)}
}

func (s *MongoStore) Tags() TagRepository {
	return &mongoTagRepository{col: s.db.Collection(tagsCollection)}
}

type userDocument struct {
	GithubLogin string `bson:"githubLogin"`
	Name        string `bson:"name"`
	Avatar      string `bson:"avatar"`
	GithubToken string `bson:"githubToken"`
}

func toUserDocument(u *domain.User) userDocument {
	return userDocument{
		GithubLogin: u.GithubLogin,
		Name:        u.Name,
		Avatar:      u.Avatar,
		GithubToken: u.GithubToken,
	}
}

func (d userDocument) user() *domain.User {
	return &domain.User{
		GithubLogin: d.GithubLogin,
		Name:        d.Name,
		Avatar:      d.Avatar,
		GithubToken: d.GithubToken,
	}
}

type mongoUserRepository struct {
	col *mongo.Collection
}

func (r *mongoUserRepository) Upsert(ctx context.Context, u *domain.User) (bool, error) {
	res, err := r.col.ReplaceOne(ctx,
		bson.M{"githubLogin": u.GithubLogin},
		toUserDocument(u),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upserting user %s: %w", u.GithubLogin, err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *mongoUserRepository) InsertMany(ctx context.Context, users []*domain.User) ([]string, error) {
	if len(users) == 0 {
		return nil, nil
	}

	models := make([]mongo.WriteModel, 0, len(users))
	for _, u := range users {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"githubLogin": u.GithubLogin}).
			SetReplacement(toUserDocument(u)).
			SetUpsert(true))
	}

	res, err := r.col.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return nil, fmt.Errorf("inserting %d users: %w", len(users), err)
	}

	// UpsertedIDs is keyed by model index
	created := make([]string, 0, len(res.UpsertedIDs))
	for i, u := range users {
		if _, ok := res.UpsertedIDs[int64(i)]; ok {
			created = append(created, u.GithubLogin)
		}
	}
	return created, nil
}

func (r *mongoUserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"githubLogin": login})
}

func (r *mongoUserRepository) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"githubToken": token})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	err := r.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return doc.user(), nil
}

func (r *mongoUserRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return int(n), nil
}

func (r *mongoUserRepository) All(ctx context.Context) ([]*domain.User, error) {
	cur, err := r.col.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.user())
	}
	return users, nil
}

type photoDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	UserID      string             `bson:"userID"`
	Created     time.Time          `bson:"created"`
}

func (d photoDocument) photo() *domain.Photo {
	return &domain.Photo{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Category:    domain.PhotoCategory(d.Category),
		UserID:      d.UserID,
		Created:     d.Created.UTC(),
	}
}

type mongoPhotoRepository struct {
	col *mongo.Collection
}

func (r *mongoPhotoRepository) Save(ctx context.Context, p *domain.Photo) (string, error) {
	doc := photoDocument{
		ID:          primitive.NewObjectID(),
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		UserID:      p.UserID,
		// mongo stores milliseconds
		Created: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("saving photo: %w", err)
	}

	p.ID = doc.ID.Hex()
	p.Created = doc.Created
	return p.ID, nil
}

func (r *mongoPhotoRepository) FindByID(ctx context.Context, id string) (*domain.Photo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPhotoNotFound
	}

	var doc photoDocument
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPhotoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding photo %s: %w", id, err)
	}
	return doc.photo(), nil
}

func (r *mongoPhotoRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting photos: %w", err)
	}
	return int(n), nil
}

func (r *mongoPhotoRepository) All(ctx context.Context) ([]*domain.Photo, error) {
	return r.find(ctx, bson.D{})
}

func (r *mongoPhotoRepository) FindByUser(ctx context.Context, login string) ([]*domain.Photo, error) {
	return r.find(ctx, bson.M{"userID": login})
}

func (r *mongoPhotoRepository) find(ctx context.Context, filter any) ([]*domain.Photo, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}

	var docs []photoDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding photos: %w", err)
	}

	photos := make([]*domain.Photo, 0, len(docs))
	for _, d := range docs {
		photos = append(photos, d.photo())
	}
	return photos, nil
}

type tagDocument struct {
	PhotoID     string `bson:"photoID"`
	GithubLogin string `bson:"githubLogin"`
}

type mongoTagRepository struct {
	col *mongo.Collection
}

func (r *mongoTagRepository) Upsert(ctx context.Context, t domain.Tag) error {
	doc := tagDocument{PhotoID: t.PhotoID, GithubLogin: t.GithubLogin}
	_, err := r.col.ReplaceOne(ctx,
		bson.M{"photoID": t.PhotoID, "githubLogin": t.GithubLogin},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("tagging %s in %s: %w", t.GithubLogin, t.PhotoID, err)
	}
	return nil
}

func (r *mongoTagRepository) PhotoIDsForUser(ctx context.Context, login string) ([]string, error) {
	tags, err := r.find(ctx, bson.M{"githubLogin": login})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.PhotoID)
	}
	return ids, nil
}

func (r *mongoTagRepository) LoginsForPhoto(ctx context.Context, photoID string) ([]string, error) {
	tags, err := r.find(ctx, bson.M{"photoID": photoID})
	if err != nil {
		return nil, err
	}

	logins := make([]string, 0, len(tags))
	for _, t := range tags {
		logins = append(logins, t.GithubLogin)
	}
	return logins, nil
}

func (r *mongoTagRepository) find(ctx context.Context, filter bson.M) ([]tagDocument, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var docs []tagDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return docs, nil
}
