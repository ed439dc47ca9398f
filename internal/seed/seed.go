package seed

import (
	"context"
	"fmt"
	"log"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers       int
	NumPosts       int
	FollowsPerUser int
	ShouldClean    bool
}

// Actions are the graph mutations the seeder drives. They are supplied by the
// caller so every edge goes through the same code path as live traffic and
// the denormalized counters stay exact.
type Actions struct {
	Follow  func(ctx context.Context, followerID, targetID uint) error
	Like    func(ctx context.Context, postID, userID uint) error
	Retweet func(ctx context.Context, postID, userID uint) error
	Reply   func(ctx context.Context, parentID, authorID uint, content string) error
}

// Summary reports what a seeding run created.
type Summary struct {
	Users    int
	Posts    int
	Follows  int
	Likes    int
	Retweets int
	Replies  int
}

// Seeder populates a database with a random social graph.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	actions Actions
}

// NewSeeder creates a seeder. Posts are spread over the last maxDays days.
func NewSeeder(db *gorm.DB, actions Actions, maxDays int) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, maxDays), actions: actions}
}

// ClearAll removes every edge, post and user.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	session := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Edge{}, &models.Post{}, &models.User{}} {
		if err := session.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Seed creates users and root posts directly, then builds follows,
// engagement and replies through the configured actions.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	summary := &Summary{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	log.Printf("✓ %d users created", summary.Users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, s.factory.BuildPost(s.pick(users)))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)
	log.Printf("✓ %d posts created", summary.Posts)

	if err := s.seedFollows(ctx, users, opts.FollowsPerUser, summary); err != nil {
		return nil, err
	}
	if err := s.seedEngagement(ctx, users, posts, summary); err != nil {
		return nil, err
	}

	log.Printf("🎉 Seeding complete: %d follows, %d likes, %d retweets, %d replies",
		summary.Follows, summary.Likes, summary.Retweets, summary.Replies)
	return summary, nil
}

func (s *Seeder) pick(users []*models.User) *models.User {
	return users[s.factory.rnd.Intn(len(users))]
}

func (s *Seeder) seedFollows(ctx context.Context, users []*models.User, perUser int, summary *Summary) error {
	if s.actions.Follow == nil || len(users) < 2 {
		return nil
	}
	if perUser >= len(users) {
		perUser = len(users) - 1
	}
	for i, follower := range users {
		for _, offset := range s.factory.rnd.Perm(len(users) - 1)[:perUser] {
			target := users[(i+1+offset)%len(users)]
			if err := s.actions.Follow(ctx, follower.ID, target.ID); err != nil {
				return fmt.Errorf("follow %d -> %d: %w", follower.ID, target.ID, err)
			}
			summary.Follows++
		}
	}
	log.Printf("✓ %d follows created", summary.Follows)
	return nil
}

func (s *Seeder) seedEngagement(ctx context.Context, users []*models.User, posts []*models.Post, summary *Summary) error {
	for _, post := range posts {
		for _, u := range users {
			roll := s.factory.rnd.Intn(10)
			if roll < 3 && s.actions.Like != nil {
				if err := s.actions.Like(ctx, post.ID, u.ID); err != nil {
					return fmt.Errorf("like post %d: %w", post.ID, err)
				}
				summary.Likes++
			}
			if roll == 0 && s.actions.Retweet != nil {
				if err := s.actions.Retweet(ctx, post.ID, u.ID); err != nil {
					return fmt.Errorf("retweet post %d: %w", post.ID, err)
				}
				summary.Retweets++
			}
		}

		if s.actions.Reply == nil || s.factory.rnd.Intn(4) != 0 {
			continue
		}
		// Authors reply to themselves first so some posts grow into threads.
		if err := s.actions.Reply(ctx, post.ID, post.AuthorID, s.factory.Content()); err != nil {
			return fmt.Errorf("reply to post %d: %w", post.ID, err)
		}
		if err := s.actions.Reply(ctx, post.ID, s.pick(users).ID, s.factory.Content()); err != nil {
			return fmt.Errorf("reply to post %d: %w", post.ID, err)
		}
		summary.Replies += 2
	}
	log.Printf("✓ %d likes, %d retweets, %d replies created", summary.Likes, summary.Retweets, summary.Replies)
	return nil
}
