package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edge-landings/api/internal/config"
	"github.com/edge-landings/api/internal/domain"
)

// --- mocks ---

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}
func (m *mockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

var tables = config.DynamoTables{Users: "users", ResetTokens: "reset_tokens"}

func TestGetUser_Found(t *testing.T) {
	api := new(mockAPI)
	item, err := attributevalue.MarshalMap(&domain.User{Email: "a@b.com", ID: "01HX", PasswordHash: "h"})
	require.NoError(t, err)
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.TableName == "users"
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	u, err := NewUserStore(api, tables).GetUser(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "01HX", u.ID)
	api.AssertExpectations(t)
}

func TestGetUser_MissingItemIsNotFound(t *testing.T) {
	api := new(mockAPI)
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserStore(api, tables).GetUser(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutUser_ClassifiesAPIErrors(t *testing.T) {
	tests := []struct {
		code string
		want domain.StoreErrorKind
	}{
		{"UnrecognizedClientException", domain.StoreErrAuth},
		{"ResourceNotFoundException", domain.StoreErrMissingSchema},
		{"AccessDeniedException", domain.StoreErrPermission},
		{"ValidationException", domain.StoreErrEncoding},
		{"ThrottlingException", domain.StoreErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			api := new(mockAPI)
			api.On("PutItem", mock.Anything, mock.Anything).
				Return(nil, &smithy.GenericAPIError{Code: tt.code, Message: "boom"})

			_, err := NewUserStore(api, tables).PutUser(context.Background(), &domain.User{Email: "a@b.com"})
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.StoreErrorKindOf(err))
		})
	}
}

func TestListUsers_FollowsPages(t *testing.T) {
	api := new(mockAPI)
	page1, _ := attributevalue.MarshalMap(&domain.User{Email: "z@b.com"})
	page2, _ := attributevalue.MarshalMap(&domain.User{Email: "a@b.com"})
	lastKey := strKey(keyEmail, "z@b.com")

	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{page1}, LastEvaluatedKey: lastKey}, nil).Once()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{page2}}, nil).Once()

	users, err := NewUserStore(api, tables).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@b.com", users[0].Email)
	api.AssertExpectations(t)
}

func TestPutResetToken_SetsTTLAttribute(t *testing.T) {
	api := new(mockAPI)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		ttl, ok := in.Item["expires_at_unix"].(*types.AttributeValueMemberN)
		return *in.TableName == "reset_tokens" && ok && ttl.Value == "1893456000"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	got, err := NewUserStore(api, tables).PutResetToken(context.Background(), &domain.ResetToken{Token: "tok", Email: "a@b.com", ExpiresAt: exp})
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), got.ExpiresAtUnix)
	api.AssertExpectations(t)
}

func TestDeleteResetToken(t *testing.T) {
	api := new(mockAPI)
	api.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		k, ok := in.Key[keyToken].(*types.AttributeValueMemberS)
		return ok && k.Value == "tok"
	})).Return(&dynamodb.DeleteItemOutput{}, nil)

	assert.NoError(t, NewUserStore(api, tables).DeleteResetToken(context.Background(), "tok"))
	api.AssertExpectations(t)
}
