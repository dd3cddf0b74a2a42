package provider

import (
	"context"
	"fmt"
	"sync"
)

/*
Scripted replays a fixed list of responses and records the requests it saw.
It stands in for a real model wherever no network is wanted.
*/
type Scripted struct {
	name      string
	mu        sync.Mutex
	responses []*Response
	Requests  []*Request
}

func NewScripted(name string, responses ...*Response) *Scripted {
	return &Scripted{name: name, responses: responses}
}

func (model *Scripted) Name() string {
	return model.name
}

func (model *Scripted) Generate(ctx context.Context, request *Request) (*Response, error) {
	model.mu.Lock()
	defer model.mu.Unlock()

	model.Requests = append(model.Requests, request)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(model.responses) == 0 {
		return nil, fmt.Errorf("scripted model %s has no responses left", model.name)
	}

	next := model.responses[0]
	model.responses = model.responses[1:]

	return next, nil
}
