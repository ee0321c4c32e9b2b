package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xiaot623/seawatch/internal/domain"
)

const (
	skMeta      = "META"
	skPrefixMsg = "MSG#"
	// OwnerIndex is the GSI keyed by owner (GSI1PK) and creation time (GSI1SK).
	OwnerIndex = "owner-index"

	appendAttempts = 3

	// sortableTime keeps a fixed fraction width so timestamps order lexically.
	sortableTime = "2006-01-02T15:04:05.000000000Z07:00"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore keeps each session in one partition: a META item plus one
// item per message whose sort key carries the message's position in the log.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a store backed by tableName.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func ownerPK(ownerID string) string {
	return "OWNER#" + ownerID
}

func msgSK(seq int) string {
	return fmt.Sprintf("%s%020d", skPrefixMsg, seq)
}

func (s *DynamoStore) key(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

func (s *DynamoStore) CreateSession(ctx context.Context, ownerID string) (*domain.Session, error) {
	sess := newSession(ownerID)
	createdAt := sess.CreatedAt.Format(sortableTime)

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: sessionPK(sess.ID)},
			"SK":           &types.AttributeValueMemberS{Value: skMeta},
			"GSI1PK":       &types.AttributeValueMemberS{Value: ownerPK(ownerID)},
			"GSI1SK":       &types.AttributeValueMemberS{Value: createdAt},
			"sessionId":    &types.AttributeValueMemberS{Value: sess.ID},
			"ownerId":      &types.AttributeValueMemberS{Value: ownerID},
			"title":        &types.AttributeValueMemberS{Value: sess.Title},
			"createdAt":    &types.AttributeValueMemberS{Value: createdAt},
			"messageCount": &types.AttributeValueMemberN{Value: "0"},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: CreateSession: %w", err)
	}
	return sess, nil
}

// AppendMessages writes the messages and bumps the META counter in one
// transaction guarded by the counter value it read, retrying on a lost race.
func (s *DynamoStore) AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	stamped := stamp(msgs)

	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		meta, err := s.getMeta(ctx, sessionID)
		if err != nil {
			return err
		}
		count, err := intAttr(meta, "messageCount")
		if err != nil {
			return fmt.Errorf("repository: AppendMessages: %w", err)
		}

		items := make([]types.TransactWriteItem, 0, len(stamped)+1)
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(s.tableName),
				Key:                 s.key(sessionID),
				UpdateExpression:    aws.String("SET messageCount = :next"),
				ConditionExpression: aws.String("messageCount = :count"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":count": &types.AttributeValueMemberN{Value: strconv.Itoa(count)},
					":next":  &types.AttributeValueMemberN{Value: strconv.Itoa(count + len(stamped))},
				},
			},
		})
		for i, m := range stamped {
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                messageItem(sessionID, count+i, m),
					ConditionExpression: aws.String("attribute_not_exists(SK)"),
				},
			})
		}

		_, err = s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
		if err == nil {
			return nil
		}
		var canceled *types.TransactionCanceledException
		if !errors.As(err, &canceled) {
			return fmt.Errorf("repository: AppendMessages: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("repository: AppendMessages: concurrent writers: %w", lastErr)
}

func (s *DynamoStore) SetTitle(ctx context.Context, sessionID, title string) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.key(sessionID),
		UpdateExpression:    aws.String("SET title = :title"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":title": &types.AttributeValueMemberS{Value: title},
		},
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("repository: SetTitle: %w", err)
	}
	return nil
}

func (s *DynamoStore) ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(OwnerIndex),
		KeyConditionExpression: aws.String("GSI1PK = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: ownerPK(ownerID)},
		},
		ScanIndexForward: aws.Bool(false),
	}

	summaries := []domain.SessionSummary{}
	err := s.query(ctx, in, func(item map[string]types.AttributeValue) error {
		sess, count, err := itemToSession(item)
		if err != nil {
			return err
		}
		sum := sess.Summary()
		sum.MessageCount = count
		summaries = append(summaries, sum)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: ListSessions: %w", err)
	}
	return summaries, nil
}

func (s *DynamoStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	meta, err := s.getMeta(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, _, err := itemToSession(meta)
	if err != nil {
		return nil, fmt.Errorf("repository: GetSession: %w", err)
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}
	err = s.query(ctx, in, func(item map[string]types.AttributeValue) error {
		m, err := itemToMessage(item)
		if err != nil {
			return err
		}
		sess.Messages = append(sess.Messages, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetSession: %w", err)
	}
	return sess, nil
}

// Close is a no-op; the SDK client holds no resources needing release.
func (s *DynamoStore) Close() error {
	return nil
}

func (s *DynamoStore) getMeta(ctx context.Context, sessionID string) (map[string]types.AttributeValue, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: get session %s: %w", sessionID, err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return out.Item, nil
}

// query runs in and follows LastEvaluatedKey until the result set is exhausted.
func (s *DynamoStore) query(ctx context.Context, in *dynamodb.QueryInput, fn func(map[string]types.AttributeValue) error) error {
	for {
		out, err := s.api.Query(ctx, in)
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func messageItem(sessionID string, seq int, m domain.Message) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK":        &types.AttributeValueMemberS{Value: msgSK(seq)},
		"messageId": &types.AttributeValueMemberS{Value: m.ID},
		"role":      &types.AttributeValueMemberS{Value: string(m.Role)},
		"text":      &types.AttributeValueMemberS{Value: m.Text},
		"hasMedia":  &types.AttributeValueMemberBOOL{Value: m.HasMedia},
		"createdAt": &types.AttributeValueMemberS{Value: m.CreatedAt.Format(sortableTime)},
	}
}

func itemToSession(item map[string]types.AttributeValue) (*domain.Session, int, error) {
	id, err := strAttr(item, "sessionId")
	if err != nil {
		return nil, 0, err
	}
	owner, _ := strAttr(item, "ownerId")
	title, _ := strAttr(item, "title")
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return nil, 0, err
	}
	count, err := intAttr(item, "messageCount")
	if err != nil {
		return nil, 0, err
	}
	return &domain.Session{
		ID:        id,
		OwnerID:   owner,
		Title:     title,
		CreatedAt: createdAt,
		Messages:  []domain.Message{},
	}, count, nil
}

func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	id, err := strAttr(item, "messageId")
	if err != nil {
		return domain.Message{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Message{}, err
	}
	text, _ := strAttr(item, "text") // allow empty
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.Message{}, err
	}
	var hasMedia bool
	if b, ok := item["hasMedia"].(*types.AttributeValueMemberBOOL); ok {
		hasMedia = b.Value
	}
	return domain.Message{
		ID:        id,
		Role:      domain.Role(role),
		Text:      text,
		HasMedia:  hasMedia,
		CreatedAt: createdAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return t, nil
}

var _ Store = (*DynamoStore)(nil)
