// Command seed runs the database seeder for Warbler.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/repository"
	"warbler/internal/seed"
	"warbler/internal/service"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of root posts to create")
	follows := flag.Int("follows", 10, "Follows created per user")
	days := flag.Int("days", 30, "Spread post timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, %d follows/user, clean=%v\n", *numUsers, *numPosts, *follows, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close() }()

	store := repository.NewStore(db)
	followService := service.NewFollowService(store, nil, nil, cfg.FeedMaxItems)
	engagementService := service.NewEngagementService(store, nil, cfg.FeedMaxItems)
	threadService := service.NewThreadService(store, nil, cfg.PostMaxLength, cfg.FeedMaxItems)

	s := seed.NewSeeder(db, seed.Actions{
		Follow: func(ctx context.Context, followerID, targetID uint) error {
			_, err := followService.Follow(ctx, followerID, targetID)
			return err
		},
		Like: func(ctx context.Context, postID, userID uint) error {
			_, err := engagementService.Like(ctx, postID, userID)
			return err
		},
		Retweet: func(ctx context.Context, postID, userID uint) error {
			_, err := engagementService.Retweet(ctx, postID, userID)
			return err
		},
		Reply: func(ctx context.Context, parentID, authorID uint, content string) error {
			_, err := threadService.Reply(ctx, service.ReplyInput{ParentPostID: parentID, AuthorID: authorID, Content: content})
			return err
		},
	}, *days)

	summary, err := s.Seed(context.Background(), seed.Options{
		NumUsers:       *numUsers,
		NumPosts:       *numPosts,
		FollowsPerUser: *follows,
		ShouldClean:    *shouldClean,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d replies", summary.Users, summary.Posts, summary.Replies)
}
