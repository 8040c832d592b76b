package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/notes-bin/imageshare/internal/model"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(addr, password string, db, poolSize int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to Redis")
	return &Client{client}, nil
}

func (c *Client) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.Set(ctx, fmt.Sprintf("user:%s", user.ID), data, 0).Err()
}

func (c *Client) GetUser(ctx context.Context, username string) (*model.User, error) {
	data, err := c.Get(ctx, fmt.Sprintf("user:%s", username)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
