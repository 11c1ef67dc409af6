package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/domain"
)

// UserStore provides typed DynamoDB operations for the users and reset token tables.
type UserStore struct {
	client API
	tables config.DynamoTables
}

func NewUserStore(client API, tables config.DynamoTables) *UserStore {
	return &UserStore{client: client, tables: tables}
}

func (s *UserStore) Name() string { return backendName }

func (s *UserStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tables.Users)})
	return classify("ping", err)
}

func (s *UserStore) GetUser(ctx context.Context, email string) (*domain.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Users),
		Key:            strKey(keyEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("get user", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user %q: %w", email, domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "get user", err)
	}
	return &u, nil
}

func (s *UserStore) PutUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "set user", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.Users),
		Item:      item,
	})
	if err != nil {
		return nil, classify("set user", err)
	}
	return u.Clone(), nil
}

// ListUsers scans the whole users table, following LastEvaluatedKey.
func (s *UserStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var (
		out   []*domain.User
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tables.Users),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, classify("list users", err)
		}
		var users []*domain.User
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &users); err != nil {
			return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "list users", err)
		}
		out = append(out, users...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *UserStore) PutResetToken(ctx context.Context, t *domain.ResetToken) (*domain.ResetToken, error) {
	c := *t
	c.ExpiresAtUnix = t.ExpiresAt.Unix()
	item, err := attributevalue.MarshalMap(&c)
	if err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "set reset token", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tables.ResetTokens),
		Item:      item,
	})
	if err != nil {
		return nil, classify("set reset token", err)
	}
	return &c, nil
}

// GetResetToken may return a token past its expiry: DynamoDB TTL deletion
// lags, so callers check expiry themselves.
func (s *UserStore) GetResetToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.ResetTokens),
		Key:            strKey(keyToken, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("get reset token", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("reset token: %w", domain.ErrNotFound)
	}
	var t domain.ResetToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, domain.NewStoreError(domain.StoreErrEncoding, backendName, "get reset token", err)
	}
	return &t, nil
}

func (s *UserStore) DeleteResetToken(ctx context.Context, token string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tables.ResetTokens),
		Key:       strKey(keyToken, token),
	})
	return classify("delete reset token", err)
}
