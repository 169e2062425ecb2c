package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
)

var resolveErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusServiceUnavailable,
}

func registerDecisions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-decisions",
		Method:      http.MethodGet,
		Path:        "/decisions",
		Summary:     "List decisions",
		Errors:      []int{http.StatusBadRequest, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*output[[]DecisionResponse], error) {
		items, err := e.ListDecisions(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(mapDecisions(items))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-decision",
		Method:        http.MethodPost,
		Path:          "/decisions",
		Summary:       "Record a proposal",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body CreateDecisionRequest
	}) (*output[DecisionResponse], error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.CreateDecision(ctx, engine.DecisionCreateOptions{
			AgentType:    input.Body.AgentType,
			DecisionType: input.Body.DecisionType,
			Title:        input.Body.Title,
			Description:  input.Body.Description,
			Confidence:   input.Body.Confidence,
			Context:      input.Body.Context,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(decisionResponse(d))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-decision",
		Method:      http.MethodGet,
		Path:        "/decisions/{id}",
		Summary:     "Get decision",
		Errors:      []int{http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *idPath) (*output[DecisionResponse], error) {
		d, err := e.GetDecision(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(decisionResponse(d))
	})

	resolve := func(verb, summary string, fn func(context.Context, string, string) (domain.AIDecision, error)) {
		huma.Register(api, huma.Operation{
			OperationID: verb + "-decision",
			Method:      http.MethodPost,
			Path:        "/decisions/{id}/" + verb,
			Summary:     summary,
			Errors:      resolveErrors,
		}, func(ctx context.Context, input *idPath) (*output[DecisionResponse], error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			d, err := fn(ctx, input.ID, actorID)
			if err != nil {
				return nil, handleError(err)
			}
			return ok(decisionResponse(d))
		})
	}
	resolve("approve", "Approve a pending decision", e.ApproveDecision)
	resolve("reject", "Reject a pending decision", e.RejectDecision)
	resolve("execute", "Carry out an approved decision", e.ExecuteDecision)
}

func registerProposals(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "propose-task-assignment",
		Method:        http.MethodPost,
		Path:          "/proposals/task-assignment",
		Summary:       "Propose assigning a task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body TaskAssignmentProposalRequest
	}) (*output[DecisionResponse], error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		d, err := e.ProposeTaskAssignment(ctx, input.Body.TaskID, input.Body.StaffID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(decisionResponse(d))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "propose-restock",
		Method:        http.MethodPost,
		Path:          "/proposals/restock",
		Summary:       "Propose restocking a resource",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body RestockProposalRequest
	}) (*output[DecisionResponse], error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		b := input.Body
		d, err := e.ProposeRestock(ctx, b.ResourceID, b.Urgency, b.SuggestedQuantity, b.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(decisionResponse(d))
	})

	huma.Register(api, huma.Operation{
		OperationID:   "propose-optimization",
		Method:        http.MethodPost,
		Path:          "/proposals/optimization",
		Summary:       "Propose an optimization",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body OptimizationProposalRequest
	}) (*output[DecisionResponse], error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		b := input.Body
		d, err := e.ProposeOptimization(ctx, b.Area, b.Title, b.Suggestion, b.Impact)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(decisionResponse(d))
	})

	huma.Register(api, huma.Operation{
		OperationID: "sweep-restock",
		Method:      http.MethodPost,
		Path:        "/sweeps/restock",
		Summary:     "Propose restocks for every low-stock resource",
		Errors:      []int{http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*output[SweepResponse], error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		res, err := e.SweepRestock(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(sweepResponse(res))
	})
}
