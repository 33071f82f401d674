package ipc

import (
	"context"
	"errors"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/project"
	"github.com/beequen/beequen/internal/setting"
	"github.com/beequen/beequen/internal/workspace"
)

// Channel names.
const (
	ChannelExecuteQuery    = "executeQuery"
	ChannelGetJobResult    = "getJobResult"
	ChannelCancelQuery     = "cancelQuery"
	ChannelDryRunQuery     = "dryRunQuery"
	ChannelGetDatasets     = "getDatasets"
	ChannelGetTableSchema  = "getTableSchema"
	ChannelGetProjects     = "getProjects"
	ChannelGetProject      = "getProject"
	ChannelCreateProject   = "createProject"
	ChannelUpdateProject   = "updateProject"
	ChannelDeleteProject   = "deleteProject"
	ChannelValidateProject = "validateProject"
	ChannelSaveSetting     = "saveSetting"
	ChannelLoadSetting     = "loadSetting"
	ChannelCreateTab       = "createTab"
	ChannelUpdateTab       = "updateTab"
	ChannelDeleteTab       = "deleteTab"
	ChannelSelectTab       = "selectTab"
	ChannelGetTabs         = "getTabs"
	ChannelRunTab          = "runTab"
	ChannelCancelTab       = "cancelTab"
	ChannelGetTabState     = "getTabState"
	ChannelGetHistory      = "getHistory"

	// ChannelExecuteQueryFromMenu is the notification sent to the UI. It is
	// delivered over the event stream, not invoked.
	ChannelExecuteQueryFromMenu = "executeQueryFromMenu"
)

// HistoryLister reads query history.
type HistoryLister interface {
	List(ctx context.Context, projectUUID string, limit int) ([]history.Entry, error)
}

// Services are what the channels operate on. Nil services leave their
// channels unregistered.
type Services struct {
	Projects  project.Store
	Backends  core.BackendProvider
	Dialer    core.Dialer
	Settings  *setting.Store
	Workspace *workspace.Workspace
	History   HistoryLister
}

// TabList is the result of getTabs.
type TabList struct {
	Tabs         []workspace.Tab `json:"tabs"`
	CurrentTabID string          `json:"currentTabId,omitempty"`
}

// Register installs the channels of svc on b.
func Register(b *Bridge, svc Services) {
	if svc.Backends != nil {
		registerQuery(b, svc.Backends)
	}
	if svc.Projects != nil {
		registerProjects(b, svc.Projects, svc.Dialer)
	}
	if svc.Settings != nil {
		registerSetting(b, svc.Settings)
	}
	if svc.Workspace != nil {
		registerTabs(b, svc.Workspace)
	}
	if svc.History != nil {
		b.Handle(ChannelGetHistory, func(ctx context.Context, args Args) (any, error) {
			projectUUID, err := args.OptionalString(0)
			if err != nil {
				return nil, err
			}
			limit, err := args.OptionalInt(1, history.DefaultLimit)
			if err != nil {
				return nil, err
			}
			return svc.History.List(ctx, projectUUID, limit)
		})
	}
}

// backendArg resolves the backend of the project uuid at argument i.
func backendArg(ctx context.Context, backends core.BackendProvider, args Args, i int) (core.Backend, error) {
	projectUUID, err := args.String(i)
	if err != nil {
		return nil, err
	}
	return backends.Backend(ctx, projectUUID)
}

func registerQuery(b *Bridge, backends core.BackendProvider) {
	b.Handle(ChannelExecuteQuery, func(ctx context.Context, args Args) (any, error) {
		query, err := args.String(0)
		if err != nil {
			return nil, err
		}
		conn, err := backendArg(ctx, backends, args, 1)
		if err != nil {
			return nil, err
		}
		return conn.Submit(ctx, query)
	})

	b.Handle(ChannelGetJobResult, func(ctx context.Context, args Args) (any, error) {
		jobID, err := args.String(0)
		if err != nil {
			return nil, err
		}
		conn, err := backendArg(ctx, backends, args, 1)
		if err != nil {
			return nil, err
		}
		return conn.AwaitResult(ctx, jobID)
	})

	b.Handle(ChannelCancelQuery, func(ctx context.Context, args Args) (any, error) {
		jobID, err := args.String(0)
		if err != nil {
			return nil, err
		}
		conn, err := backendArg(ctx, backends, args, 1)
		if err != nil {
			return nil, err
		}
		return nil, conn.Cancel(ctx, jobID)
	})

	b.Handle(ChannelDryRunQuery, func(ctx context.Context, args Args) (any, error) {
		query, err := args.String(0)
		if err != nil {
			return nil, err
		}
		conn, err := backendArg(ctx, backends, args, 1)
		if err != nil {
			return nil, err
		}
		return conn.DryRun(ctx, query)
	})

	b.Handle(ChannelGetDatasets, func(ctx context.Context, args Args) (any, error) {
		conn, err := backendArg(ctx, backends, args, 0)
		if err != nil {
			return nil, err
		}
		filter, err := args.OptionalString(1)
		if err != nil {
			return nil, err
		}
		datasets, err := conn.ListDatasets(ctx)
		if err != nil {
			return nil, err
		}
		return FilterDatasets(datasets, filter), nil
	})

	b.Handle(ChannelGetTableSchema, func(ctx context.Context, args Args) (any, error) {
		conn, err := backendArg(ctx, backends, args, 0)
		if err != nil {
			return nil, err
		}
		datasetID, err := args.String(1)
		if err != nil {
			return nil, err
		}
		tableID, err := args.String(2)
		if err != nil {
			return nil, err
		}
		return conn.GetTableSchema(ctx, datasetID, tableID)
	})
}

func registerProjects(b *Bridge, store project.Store, dialer core.Dialer) {
	b.Handle(ChannelGetProjects, func(context.Context, Args) (any, error) {
		return store.List()
	})

	b.Handle(ChannelGetProject, func(_ context.Context, args Args) (any, error) {
		uuid, err := args.String(0)
		if err != nil {
			return nil, err
		}
		p, err := store.Get(uuid)
		if errors.Is(err, project.ErrProjectNotFound) {
			return nil, nil
		}
		return p, err
	})

	b.Handle(ChannelCreateProject, func(_ context.Context, args Args) (any, error) {
		var input project.CreateInput
		if err := args.Decode(0, &input); err != nil {
			return nil, err
		}
		return store.Create(input)
	})

	b.Handle(ChannelUpdateProject, func(_ context.Context, args Args) (any, error) {
		var p project.Project
		if err := args.Decode(0, &p); err != nil {
			return nil, err
		}
		return nil, store.Update(&p)
	})

	b.Handle(ChannelDeleteProject, func(_ context.Context, args Args) (any, error) {
		uuid, err := args.String(0)
		if err != nil {
			return nil, err
		}
		return nil, store.Delete(uuid)
	})

	if dialer == nil {
		return
	}
	b.Handle(ChannelValidateProject, func(ctx context.Context, args Args) (any, error) {
		var input project.CreateInput
		if err := args.Decode(0, &input); err != nil {
			return nil, err
		}
		if err := project.Validate(ctx, dialer, input); err != nil {
			return nil, err
		}
		return true, nil
	})
}

func registerSetting(b *Bridge, store *setting.Store) {
	b.Handle(ChannelLoadSetting, func(context.Context, Args) (any, error) {
		return store.Load()
	})

	b.Handle(ChannelSaveSetting, func(_ context.Context, args Args) (any, error) {
		if !args.Has(0) {
			return nil, invalidArgument(0, "missing")
		}
		return nil, store.SaveJSON(args[0])
	})
}

func registerTabs(b *Bridge, ws *workspace.Workspace) {
	tabArgs := func(args Args) (string, string, error) {
		projectUUID, err := args.String(0)
		if err != nil {
			return "", "", err
		}
		tabID, err := args.String(1)
		if err != nil {
			return "", "", err
		}
		return projectUUID, tabID, nil
	}

	b.Handle(ChannelCreateTab, func(_ context.Context, args Args) (any, error) {
		projectUUID, err := args.String(0)
		if err != nil {
			return nil, err
		}
		return ws.CreateTab(projectUUID), nil
	})

	b.Handle(ChannelUpdateTab, func(_ context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		var update workspace.TabUpdate
		if err := args.Decode(2, &update); err != nil {
			return nil, err
		}
		return ws.UpdateTab(projectUUID, tabID, update)
	})

	b.Handle(ChannelDeleteTab, func(ctx context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		return nil, ws.DeleteTab(ctx, projectUUID, tabID)
	})

	b.Handle(ChannelSelectTab, func(_ context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		return nil, ws.SelectTab(projectUUID, tabID)
	})

	b.Handle(ChannelGetTabs, func(_ context.Context, args Args) (any, error) {
		projectUUID, err := args.String(0)
		if err != nil {
			return nil, err
		}
		list := TabList{Tabs: ws.Tabs(projectUUID)}
		if cur, ok := ws.Current(projectUUID); ok {
			list.CurrentTabID = cur.ID
		}
		return list, nil
	})

	b.Handle(ChannelRunTab, func(ctx context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		return ws.Run(ctx, projectUUID, tabID)
	})

	b.Handle(ChannelCancelTab, func(ctx context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		if err := ws.Cancel(ctx, projectUUID, tabID); err != nil {
			return nil, err
		}
		return ws.State(projectUUID, tabID)
	})

	b.Handle(ChannelGetTabState, func(_ context.Context, args Args) (any, error) {
		projectUUID, tabID, err := tabArgs(args)
		if err != nil {
			return nil, err
		}
		return ws.State(projectUUID, tabID)
	})
}
