package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"minevault-backend/internal/config"
	"minevault-backend/internal/models"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context

	startingBalance uint64
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client:          client,
		ctx:             ctx,
		startingBalance: cfg.StartingBalance,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) GetWallet(address string) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, address)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		wallet := models.NewWallet(address, s.startingBalance)
		if err := s.SaveWallet(wallet); err != nil {
			return nil, fmt.Errorf("failed to create wallet: %v", err)
		}
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %v", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %v", err)
	}
	return &wallet, nil
}

func (s *RedisService) SaveWallet(wallet *models.Wallet) error {
	key := fmt.Sprintf(KeyWallet, wallet.Address)

	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %v", err)
	}
	return s.client.Set(s.ctx, key, data, 0).Err()
}

var debitScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	if wallet.balance < amount then
		return redis.error_reply("insufficient balance")
	end

	wallet.balance = wallet.balance - amount
	wallet.total_wagered = wallet.total_wagered + amount

	redis.call("SET", key, cjson.encode(wallet))

	return "OK"
`)

// Debit atomically removes amount from a wallet. Fails without mutation
// if the balance cannot cover it.
func (s *RedisService) Debit(address string, amount uint64) error {
	key := fmt.Sprintf(KeyWallet, address)
	if err := debitScript.Run(s.ctx, s.client, []string{key}, amount).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInsufficientBalance, err)
	}
	return nil
}

var creditScript = redis.NewScript(`
	local key = KEYS[1]
	local amount = tonumber(ARGV[1])

	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("wallet not found")
	end

	local wallet = cjson.decode(data)

	wallet.balance = wallet.balance + amount
	wallet.total_won = wallet.total_won + amount

	redis.call("SET", key, cjson.encode(wallet))

	return "OK"
`)

// Credit atomically adds amount to a wallet.
func (s *RedisService) Credit(address string, amount uint64) error {
	key := fmt.Sprintf(KeyWallet, address)
	return creditScript.Run(s.ctx, s.client, []string{key}, amount).Err()
}

// SaveGame write-through persists an engine snapshot for history and
// recovery queries. Records have no TTL; finished games stay auditable.
func (s *RedisService) SaveGame(game *models.Game) error {
	key := fmt.Sprintf(KeyGameRecord, game.ID)

	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %v", err)
	}
	if err := s.client.Set(s.ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save game: %v", err)
	}

	activeKey := fmt.Sprintf(KeyActiveGames, game.Principal)
	if game.Active {
		return s.client.SAdd(s.ctx, activeKey, game.ID).Err()
	}
	return nil
}

func (s *RedisService) CompleteGame(principal, gameID string) error {
	activeKey := fmt.Sprintf(KeyActiveGames, principal)
	if err := s.client.SRem(s.ctx, activeKey, gameID).Err(); err != nil {
		return fmt.Errorf("failed to remove from active games: %v", err)
	}

	finishedKey := fmt.Sprintf(KeyFinishedGames, principal)
	if err := s.client.ZAdd(s.ctx, finishedKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: gameID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to finished games: %v", err)
	}

	// Keep the 100 most recent entries in the index.
	s.client.ZRemRangeByRank(s.ctx, finishedKey, 0, -101)

	return nil
}

func (s *RedisService) GetGame(gameID string) (*models.Game, error) {
	key := fmt.Sprintf(KeyGameRecord, gameID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
		}
		return nil, fmt.Errorf("failed to get game: %v", err)
	}

	var game models.Game
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %v", err)
	}
	return &game, nil
}

func (s *RedisService) GetGameHistory(principal string, limit int64) ([]*models.Game, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	finishedKey := fmt.Sprintf(KeyFinishedGames, principal)

	gameIDs, err := s.client.ZRevRange(s.ctx, finishedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game ids: %v", err)
	}

	var games []*models.Game
	for _, gameID := range gameIDs {
		game, err := s.GetGame(gameID)
		if err != nil {
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

func (s *RedisService) SaveTransaction(tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %v", err)
	}
	if err := s.client.Set(s.ctx, txKey, data, TTLTransaction).Err(); err != nil {
		return fmt.Errorf("failed to save transaction: %v", err)
	}

	logKey := fmt.Sprintf(KeyTransactionLog, tx.Address)
	if err := s.client.ZAdd(s.ctx, logKey, redis.Z{
		Score:  float64(tx.CreatedAt.Unix()),
		Member: tx.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to transaction log: %v", err)
	}

	s.client.ZRemRangeByRank(s.ctx, logKey, 0, -101)

	return nil
}

func (s *RedisService) CheckRateLimit(address, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, address, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisService) DeleteWallet(address string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyWallet, address)).Err()
}

func (s *RedisService) DeleteGame(gameID string) error {
	return s.client.Del(s.ctx, fmt.Sprintf(KeyGameRecord, gameID)).Err()
}
