package web

import (
	"time"

	"hourgrid/timegrid"
	"hourgrid/worklog"
)

const dayLayout = "2006-01-02"

type stateView struct {
	Month          string            `json:"month"`
	Days           []dayView         `json:"days"`
	Tasks          []taskView        `json:"tasks"`
	Selection      []cellView        `json:"selection"`
	Mode           string            `json:"mode"`
	EditingValue   string            `json:"editingValue"`
	ImportActive   bool              `json:"importActive"`
	ReadOnly       bool              `json:"readOnly"`
	Hint           string            `json:"hint"`
	TypesOfWork    []typeOfWorkView  `json:"typesOfWork"`
	SelectedType   string            `json:"selectedTypeOfWork,omitempty"`
	DisplayWeekend bool              `json:"displayWeekend"`
	MonthTotal     float64           `json:"monthTotal"`
	LoadingMonth   bool              `json:"loadingMonth"`
	LoadError      string            `json:"loadError,omitempty"`
	LastRefresh    string            `json:"lastRefresh,omitempty"`
	Loading        []cellView        `json:"loading"`
	Favorites      []int64           `json:"favorites"`
	NewlyAdded     []int64           `json:"newlyAdded"`
}

type dayView struct {
	Date    string  `json:"date"`
	Weekday string  `json:"weekday"`
	Total   float64 `json:"total"`
}

type taskView struct {
	TaskID             int64      `json:"taskId"`
	Project            string     `json:"project"`
	Description        string     `json:"description"`
	CustRefDescription string     `json:"custRefDescription,omitempty"`
	Total              float64    `json:"total"`
	Entries            []cellView `json:"entries"`
}

type cellView struct {
	TaskID         int64   `json:"taskId"`
	Date           string  `json:"date"`
	Hours          float64 `json:"hours,omitempty"`
	UID            string  `json:"uid,omitempty"`
	Status         string  `json:"status,omitempty"`
	IsWorkFromHome bool    `json:"isWorkFromHome,omitempty"`
}

type typeOfWorkView struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Description string `json:"description"`
}

type totalsView struct {
	ByDay  map[string]float64 `json:"byDay"`
	ByTask map[int64]float64  `json:"byTask"`
	Month  float64            `json:"month"`
}

func buildStateView(state timegrid.State, now time.Time) stateView {
	totals := timegrid.ComputeTotals(state)
	view := stateView{
		Mode:           state.Mode.String(),
		EditingValue:   state.EditingValue,
		ImportActive:   state.ImportActive(),
		ReadOnly:       timegrid.IsGridReadOnly(state, now),
		Hint:           timegrid.HintMessage(state, now),
		SelectedType:   timegrid.SelectedTypeOfWorkKey(state),
		DisplayWeekend: state.DisplayWeekend,
		MonthTotal:     totals.Month,
		LoadingMonth:   state.LoadingMonth,
		LoadError:      state.LoadError,
		Days:           []dayView{},
		Tasks:          []taskView{},
		Selection:      []cellView{},
		Loading:        []cellView{},
		TypesOfWork:    []typeOfWorkView{},
		Favorites:      []int64{},
		NewlyAdded:     append([]int64{}, state.NewlyAdded...),
	}
	if !state.Month.IsZero() {
		view.Month = state.Month.Format("2006-01")
	}
	if !state.LastRefresh.IsZero() {
		view.LastRefresh = state.LastRefresh.Format(time.RFC3339)
	}

	for _, day := range timegrid.VisibleDays(state) {
		key := worklog.DayKey(day)
		view.Days = append(view.Days, dayView{Date: key, Weekday: day.Weekday().String()[:3], Total: totals.ByDay[key]})
	}

	byTask := make(map[int64][]cellView)
	for _, entry := range state.Entries {
		byTask[entry.TaskID] = append(byTask[entry.TaskID], cellView{
			TaskID:         entry.TaskID,
			Date:           worklog.DayKey(entry.Date),
			Hours:          entry.Hours,
			UID:            entry.UID,
			IsWorkFromHome: entry.IsWorkFromHome,
		})
	}
	for _, id := range state.Tasks.IDs {
		task := state.Tasks.ByID[id]
		entries := byTask[id]
		if entries == nil {
			entries = []cellView{}
		}
		view.Tasks = append(view.Tasks, taskView{
			TaskID:             task.TaskID,
			Project:            task.Project,
			Description:        task.Description,
			CustRefDescription: task.CustRefDescription,
			Total:              totals.ByTask[id],
			Entries:            entries,
		})
	}

	for _, cell := range state.Selection {
		view.Selection = append(view.Selection, cellView{TaskID: cell.TaskID, Date: worklog.DayKey(cell.Day), Status: cell.Status.String()})
	}
	for _, key := range state.Loading {
		view.Loading = append(view.Loading, cellView{TaskID: key.TaskID, Date: key.Day})
	}
	for _, item := range state.TypesOfWork {
		view.TypesOfWork = append(view.TypesOfWork, typeOfWorkView{ID: item.ID, Key: item.Key, Description: item.Description})
	}
	for _, task := range state.Favorites {
		view.Favorites = append(view.Favorites, task.TaskID)
	}
	return view
}

func buildTotalsView(state timegrid.State) totalsView {
	totals := timegrid.ComputeTotals(state)
	return totalsView{ByDay: totals.ByDay, ByTask: totals.ByTask, Month: totals.Month}
}
