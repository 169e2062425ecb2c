package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusInternalServerError,
}

type idPath struct {
	ID string `path:"id"`
}

func registerRequests(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "ingest-request",
		Method:        http.MethodPost,
		Path:          "/requests",
		Summary:       "Ingest project request",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body IngestRequestRequest
	}) (*output[domain.ProjectRequest], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		p, err := e.IngestRequest(ctx, engine.RequestCreateOptions{
			ID:                  b.ID,
			ClientName:          b.ClientName,
			ClientCompany:       b.ClientCompany,
			ClientEmail:         b.ClientEmail,
			RawContent:          b.RawContent,
			ProjectType:         b.ProjectType,
			Deadline:            b.Deadline,
			Budget:              b.Budget,
			AdvancePaid:         b.AdvancePaid,
			AdvanceAmount:       b.AdvanceAmount,
			EstimatedEffortDays: b.EstimatedEffortDays,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "List project requests",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*output[[]domain.ProjectRequest], error) {
		items, err := e.ListRequests(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(nonNilRequests(items))
	})

	huma.Register(api, huma.Operation{
		OperationID: "rank-requests",
		Method:      http.MethodGet,
		Path:        "/requests/ranked",
		Summary:     "Open requests by priority",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*output[RankedResponse], error) {
		ranked, err := e.RankRequests(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(RankedResponse{TeamLoad: ranked.TeamLoad, Requests: nonNilRequests(ranked.Requests)})
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/requests/{id}",
		Summary:     "Get project request",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.ProjectRequest], error) {
		p, err := e.GetRequest(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p)
	})

	huma.Register(api, huma.Operation{
		OperationID: "advance-request",
		Method:      http.MethodPost,
		Path:        "/requests/{id}/advance",
		Summary:     "Move a request forward in its lifecycle",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body AdvanceRequestRequest
	}) (*output[domain.ProjectRequest], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AdvanceRequest(ctx, input.ID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(p)
	})
}

func registerStaff(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-staff",
		Method:        http.MethodPost,
		Path:          "/staff",
		Summary:       "Add staff member",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateStaffRequest
	}) (*output[domain.StaffMember], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		available := true
		if input.Body.Available != nil {
			available = *input.Body.Available
		}
		s, err := e.AddStaff(ctx, engine.StaffCreateOptions{
			ID:              input.Body.ID,
			Name:            input.Body.Name,
			Email:           input.Body.Email,
			Skills:          input.Body.Skills,
			Available:       available,
			CurrentWorkload: input.Body.CurrentWorkload,
			MaxCapacity:     input.Body.MaxCapacity,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-staff",
		Method:      http.MethodGet,
		Path:        "/staff",
		Summary:     "List staff",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.StaffMember], error) {
		items, err := e.ListStaff(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.StaffMember{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-staff",
		Method:      http.MethodPatch,
		Path:        "/staff/{id}",
		Summary:     "Update availability or workload",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body UpdateStaffRequest
	}) (*output[domain.StaffMember], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpdateStaff(ctx, engine.StaffUpdateOptions{
			ID:              input.ID,
			Available:       input.Body.Available,
			CurrentWorkload: input.Body.CurrentWorkload,
			MaxCapacity:     input.Body.MaxCapacity,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(s)
	})
}

func registerResources(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-resource",
		Method:        http.MethodPost,
		Path:          "/resources",
		Summary:       "Add inventory resource",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateResourceRequest
	}) (*output[domain.Resource], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b := input.Body
		r, err := e.AddResource(ctx, engine.ResourceCreateOptions{
			ID:           b.ID,
			Name:         b.Name,
			Type:         b.Type,
			Quantity:     b.Quantity,
			Unit:         b.Unit,
			MinThreshold: b.MinThreshold,
			MaxThreshold: b.MaxThreshold,
			CostPerUnit:  b.CostPerUnit,
			Supplier:     b.Supplier,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(r)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-resources",
		Method:      http.MethodGet,
		Path:        "/resources",
		Summary:     "List inventory",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Resource], error) {
		items, err := e.ListResources(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Resource{}
		}
		return ok(items)
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-resource-quantity",
		Method:      http.MethodPut,
		Path:        "/resources/{id}/quantity",
		Summary:     "Record a stock count",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   string `path:"id"`
		Body SetQuantityRequest
	}) (*output[domain.Resource], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		r, err := e.SetResourceQuantity(ctx, input.ID, input.Body.Quantity, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return ok(r)
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest
	}) (*output[domain.Task], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:          input.Body.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return ok(t)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*output[[]domain.Task], error) {
		items, err := e.ListTasks(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Task{}
		}
		return ok(items)
	})
}
