package dynamo

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxBatchWrite is the BatchWriteItem request limit.
const maxBatchWrite = 25

// strKey builds a primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value pairs into a SET expression. Fields are
// sorted so the same input always yields the same expression.
func buildUpdateExpr(updates map[string]interface{}) (*updateExpr, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	ue := &updateExpr{
		Expr:   "SET ",
		Names:  make(map[string]string, len(fields)),
		Values: make(map[string]types.AttributeValue, len(fields)),
	}
	for i, k := range fields {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		if i > 0 {
			ue.Expr += ", "
		}
		ue.Expr += nameKey + " = " + valueKey
	}
	return ue, nil
}

// chunk splits reqs into slices of at most size elements.
func chunk(reqs []types.WriteRequest, size int) [][]types.WriteRequest {
	var out [][]types.WriteRequest
	for len(reqs) > size {
		out = append(out, reqs[:size])
		reqs = reqs[size:]
	}
	if len(reqs) > 0 {
		out = append(out, reqs)
	}
	return out
}
