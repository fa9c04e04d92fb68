// Package dynamo stores cards in a DynamoDB table. Each card is one item
// keyed by PK "CARD#<id>" and SK "META"; state transitions are conditional
// updates so the state check and the write happen in one request.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/cardscan/internal/domain"
	"github.com/ignite/cardscan/internal/service/cards"
)

const (
	pkPrefix  = "CARD#"
	skMeta    = "META"
	pkCounter = "COUNTER#cards"
	skSeq     = "SEQ"
)

// API is the subset of the DynamoDB client used by CardRepo.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type cardItem struct {
	PK        string     `dynamodbav:"PK"`
	SK        string     `dynamodbav:"SK"`
	ID        string     `dynamodbav:"id"`
	Name      string     `dynamodbav:"name"`
	Company   string     `dynamodbav:"company"`
	Phone     string     `dynamodbav:"phone"`
	Email     string     `dynamodbav:"email"`
	Website   string     `dynamodbav:"website"`
	City      string     `dynamodbav:"city"`
	State     string     `dynamodbav:"state"`
	DeletedAt *time.Time `dynamodbav:"deleted_at,omitempty"`
	CreatedAt time.Time  `dynamodbav:"created_at"`
	UpdatedAt time.Time  `dynamodbav:"updated_at"`
	Seq       int64      `dynamodbav:"seq"`
}

func (it *cardItem) card() domain.Card {
	return domain.Card{
		ID: it.ID,
		CardFields: domain.CardFields{
			Name: it.Name, Company: it.Company, Phone: it.Phone,
			Email: it.Email, Website: it.Website, City: it.City,
		},
		State:     domain.CardState(it.State),
		DeletedAt: it.DeletedAt,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

// CardRepo implements cards.Repository on DynamoDB.
type CardRepo struct {
	client    API
	tableName string
}

// NewCardRepo wraps an existing client.
func NewCardRepo(client API, tableName string) *CardRepo {
	return &CardRepo{client: client, tableName: tableName}
}

// NewFromConfig loads AWS configuration for region (and optional shared
// profile) and returns a repository for tableName.
func NewFromConfig(ctx context.Context, tableName, region, profile, endpoint string) (*CardRepo, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewCardRepo(client, tableName), nil
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefix + id},
		"SK": &types.AttributeValueMemberS{Value: skMeta},
	}
}

// nextSeq bumps the table's atomic insertion counter. Creation timestamps
// can collide, so listing order comes from this counter instead.
func (r *CardRepo) nextSeq(ctx context.Context) (int64, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkCounter},
			"SK": &types.AttributeValueMemberS{Value: skSeq},
		},
		UpdateExpression:          aws.String("ADD #seq :one"),
		ExpressionAttributeNames:  map[string]string{"#seq": "seq"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing card sequence: %w", err)
	}
	var counter struct {
		Seq int64 `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil {
		return 0, fmt.Errorf("unmarshaling card sequence: %w", err)
	}
	return counter.Seq, nil
}

func (r *CardRepo) Insert(ctx context.Context, c *domain.Card) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	item := cardItem{
		PK: pkPrefix + c.ID, SK: skMeta, ID: c.ID,
		Name: c.Name, Company: c.Company, Phone: c.Phone,
		Email: c.Email, Website: c.Website, City: c.City,
		State:     string(c.State),
		DeletedAt: c.DeletedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Seq:       seq,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling card: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("putting card to DynamoDB: %w", err)
	}
	return nil
}

func (r *CardRepo) Get(ctx context.Context, id string) (*domain.Card, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting card from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, cards.ErrNotFound
	}
	var item cardItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling card: %w", err)
	}
	c := item.card()
	return &c, nil
}

func (r *CardRepo) Update(ctx context.Context, id string, f domain.CardFields, ts time.Time) (*domain.Card, error) {
	values, err := marshalValues(map[string]any{
		":name": f.Name, ":company": f.Company, ":phone": f.Phone,
		":email": f.Email, ":website": f.Website, ":city": f.City,
		":ts": ts, ":from": string(domain.CardActive),
	})
	if err != nil {
		return nil, err
	}
	return r.conditionalUpdate(ctx, id, &dynamodb.UpdateItemInput{
		UpdateExpression: aws.String("SET #name = :name, #company = :company, #phone = :phone, " +
			"#email = :email, #website = :website, #city = :city, #updated = :ts"),
		ExpressionAttributeNames: map[string]string{
			"#name": "name", "#company": "company", "#phone": "phone",
			"#email": "email", "#website": "website", "#city": "city",
			"#updated": "updated_at", "#st": "state",
		},
		ExpressionAttributeValues: values,
	})
}

func (r *CardRepo) SetState(ctx context.Context, id string, state domain.CardState, ts time.Time) (*domain.Card, error) {
	in := &dynamodb.UpdateItemInput{
		ExpressionAttributeNames: map[string]string{
			"#st": "state", "#updated": "updated_at", "#deleted": "deleted_at",
		},
	}
	var (
		values map[string]types.AttributeValue
		err    error
	)
	switch state {
	case domain.CardDeleted:
		in.UpdateExpression = aws.String("SET #st = :to, #deleted = :ts, #updated = :ts")
		values, err = marshalValues(map[string]any{
			":to": string(domain.CardDeleted), ":from": string(domain.CardActive), ":ts": ts,
		})
	case domain.CardActive:
		in.UpdateExpression = aws.String("SET #st = :to, #updated = :ts REMOVE #deleted")
		values, err = marshalValues(map[string]any{
			":to": string(domain.CardActive), ":from": string(domain.CardDeleted), ":ts": ts,
		})
	default:
		return nil, fmt.Errorf("set state: unknown state %q", state)
	}
	if err != nil {
		return nil, err
	}
	in.ExpressionAttributeValues = values
	return r.conditionalUpdate(ctx, id, in)
}

// conditionalUpdate applies in only when the item exists in state ":from".
func (r *CardRepo) conditionalUpdate(ctx context.Context, id string, in *dynamodb.UpdateItemInput) (*domain.Card, error) {
	in.TableName = aws.String(r.tableName)
	in.Key = key(id)
	in.ConditionExpression = aws.String("attribute_exists(PK) AND #st = :from")
	in.ReturnValues = types.ReturnValueAllNew

	out, err := r.client.UpdateItem(ctx, in)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		current, gerr := r.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, fmt.Errorf("%w: card %s is %s", cards.ErrInvalidState, id, current.State)
	}
	if err != nil {
		return nil, fmt.Errorf("updating card in DynamoDB: %w", err)
	}

	var item cardItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshaling card: %w", err)
	}
	c := item.card()
	return &c, nil
}

func marshalValues(in map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// scan pages through every card item, optionally restricted to state.
func (r *CardRepo) scan(ctx context.Context, state domain.CardState) ([]cardItem, error) {
	in := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("begins_with(PK, :prefix) AND SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix": &types.AttributeValueMemberS{Value: pkPrefix},
			":sk":     &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	}
	if state != "" {
		in.FilterExpression = aws.String("begins_with(PK, :prefix) AND SK = :sk AND #st = :state")
		in.ExpressionAttributeNames = map[string]string{"#st": "state"}
		in.ExpressionAttributeValues[":state"] = &types.AttributeValueMemberS{Value: string(state)}
	}

	var items []cardItem
	for {
		out, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("scanning cards: %w", err)
		}
		var page []cardItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling cards: %w", err)
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Seq != items[j].Seq {
			return items[i].Seq < items[j].Seq
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *CardRepo) ListByState(ctx context.Context, state domain.CardState, term string) ([]domain.Card, error) {
	items, err := r.scan(ctx, state)
	if err != nil {
		return nil, err
	}
	out := []domain.Card{}
	for i := range items {
		c := items[i].card()
		if c.Matches(term) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CardRepo) Count(ctx context.Context) (domain.Counts, error) {
	var n domain.Counts
	items, err := r.scan(ctx, "")
	if err != nil {
		return n, err
	}
	for _, it := range items {
		n.Total++
		if it.State == string(domain.CardActive) {
			n.Active++
		} else {
			n.Deleted++
		}
	}
	return n, nil
}
