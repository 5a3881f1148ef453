package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultCommitLineCap bounds the additions and deletions counted per commit so
// generated or vendored files do not dominate the code signal.
const DefaultCommitLineCap = 1000

// SignalRepository reads the raw activity data owned by the project
// management store: group membership, tasks, peer reviews and commits.
// It never writes.
type SignalRepository struct {
	pool    *pgxpool.Pool
	lineCap int
}

// NewSignalRepository creates a SignalRepository. A non-positive lineCap
// falls back to DefaultCommitLineCap.
func NewSignalRepository(pool *pgxpool.Pool, lineCap int) *SignalRepository {
	if lineCap <= 0 {
		lineCap = DefaultCommitLineCap
	}
	return &SignalRepository{pool: pool, lineCap: lineCap}
}

// Members lists every student of a project: group members, group leaders and
// enrolled students without a group (GroupID 0). A student in several groups
// of the same project is reported once, with the lowest group id.
func (r *SignalRepository) Members(ctx context.Context, projectID int64) ([]domain.Member, error) {
	const q = `
with grouped as (
	select gm.user_id, g.id as group_id, g.name as group_name
	from groups g
	join group_members gm on gm.group_id = g.id
	where g.project_id = $1
	union
	select g.leader_id, g.id, g.name
	from groups g
	where g.project_id = $1 and g.leader_id is not null
),
enrolled as (
	select user_id from grouped
	union
	select ps.student_id from project_students ps where ps.project_id = $1
)
select distinct on (u.id)
       u.id, u.username, coalesce(u.full_name, ''), coalesce(u.email, ''),
       coalesce(gr.group_id, 0), coalesce(gr.group_name, '')
from users u
join enrolled e on e.user_id = u.id
left join grouped gr on gr.user_id = u.id
order by u.id, gr.group_id;
`
	rows, err := r.pool.Query(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	return collectMembers(rows)
}

// GroupMembers lists the members of one group, including its leader.
func (r *SignalRepository) GroupMembers(ctx context.Context, projectID, groupID int64) ([]domain.Member, error) {
	var groupName string
	err := r.pool.QueryRow(ctx,
		`select name from groups where id = $1 and project_id = $2`, groupID, projectID).Scan(&groupName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}

	const q = `
select u.id, u.username, coalesce(u.full_name, ''), coalesce(u.email, ''), $1::bigint, $2::text
from users u
where u.id in (
	select gm.user_id from group_members gm where gm.group_id = $1
	union
	select g.leader_id from groups g where g.id = $1 and g.leader_id is not null
)
order by u.id;
`
	rows, err := r.pool.Query(ctx, q, groupID, groupName)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	return collectMembers(rows)
}

// Groups returns the ids of every group of a project.
func (r *SignalRepository) Groups(ctx context.Context, projectID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `select id from groups where project_id = $1 order by id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	return ids, nil
}

// RawSignals aggregates the un-normalized signals of the given students as of
// asOf. Students with no activity get zero signals. The result follows the
// order of userIDs.
func (r *SignalRepository) RawSignals(ctx context.Context, projectID int64, userIDs []int64, asOf time.Time) ([]domain.RawSignals, error) {
	byUser := make(map[int64]*domain.RawSignals, len(userIDs))
	out := make([]domain.RawSignals, len(userIDs))
	for i, id := range userIDs {
		out[i].UserID = id
		byUser[id] = &out[i]
	}
	if len(userIDs) == 0 {
		return out, nil
	}

	if err := r.taskSignals(ctx, projectID, userIDs, asOf, byUser); err != nil {
		return nil, err
	}
	if err := r.peerSignals(ctx, projectID, userIDs, byUser); err != nil {
		return nil, err
	}
	if err := r.codeSignals(ctx, projectID, userIDs, byUser); err != nil {
		return nil, err
	}
	return out, nil
}

// taskSignals sums the difficulty of completed tasks and counts late ones:
// completed after the deadline, or still open with the deadline passed.
func (r *SignalRepository) taskSignals(ctx context.Context, projectID int64, userIDs []int64, asOf time.Time, byUser map[int64]*domain.RawSignals) error {
	const q = `
select t.assignee_id,
       coalesce(sum(coalesce(t.difficulty, 1)) filter (where t.status = 'COMPLETED'), 0)::float8,
       count(*) filter (
           where t.deadline is not null and (
               (t.status = 'COMPLETED' and t.completed_at > t.deadline)
               or (t.status <> 'COMPLETED' and t.deadline < $2)
           )
       )::int
from tasks t
join groups g on g.id = t.group_id
where g.project_id = $1 and t.assignee_id = any($3)
group by t.assignee_id;
`
	rows, err := r.pool.Query(ctx, q, projectID, asOf, userIDs)
	if err != nil {
		return fmt.Errorf("query task signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			sum    float64
			late   int
		)
		if err := rows.Scan(&userID, &sum, &late); err != nil {
			return fmt.Errorf("scan task signals: %w", err)
		}
		if s, ok := byUser[userID]; ok {
			s.TaskCompletionRaw = sum
			s.LateTaskCount = late
		}
	}
	return rows.Err()
}

func (r *SignalRepository) peerSignals(ctx context.Context, projectID int64, userIDs []int64, byUser map[int64]*domain.RawSignals) error {
	const q = `
select pr.reviewee_id, avg(pr.score)::float8
from peer_reviews pr
where pr.project_id = $1 and pr.reviewee_id = any($2)
group by pr.reviewee_id;
`
	rows, err := r.pool.Query(ctx, q, projectID, userIDs)
	if err != nil {
		return fmt.Errorf("query peer signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			avg    float64
		)
		if err := rows.Scan(&userID, &avg); err != nil {
			return fmt.Errorf("scan peer signals: %w", err)
		}
		if s, ok := byUser[userID]; ok {
			s.PeerReviewRaw = avg
		}
	}
	return rows.Err()
}

// codeSignals sums additions and deletions of valid commits linked to the
// student's tasks, each commit capped at lineCap.
func (r *SignalRepository) codeSignals(ctx context.Context, projectID int64, userIDs []int64, byUser map[int64]*domain.RawSignals) error {
	const q = `
select t.assignee_id,
       coalesce(sum(least(cr.additions, $2)), 0)::bigint,
       coalesce(sum(least(cr.deletions, $2)), 0)::bigint
from commit_records cr
join tasks t on t.id = cr.task_id
join groups g on g.id = t.group_id
where g.project_id = $1 and cr.valid = true and t.assignee_id = any($3)
group by t.assignee_id;
`
	rows, err := r.pool.Query(ctx, q, projectID, r.lineCap, userIDs)
	if err != nil {
		return fmt.Errorf("query code signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID   int64
			add, del int64
		)
		if err := rows.Scan(&userID, &add, &del); err != nil {
			return fmt.Errorf("scan code signals: %w", err)
		}
		if s, ok := byUser[userID]; ok {
			s.Additions = add
			s.Deletions = del
		}
	}
	return rows.Err()
}

// ActiveTasks returns the NOT_STARTED and IN_PROGRESS tasks of the given users
// within a project.
func (r *SignalRepository) ActiveTasks(ctx context.Context, projectID int64, userIDs []int64) ([]domain.ActiveTask, error) {
	if len(userIDs) == 0 {
		return []domain.ActiveTask{}, nil
	}
	const q = `
select t.id, t.assignee_id, coalesce(t.difficulty, 0), t.deadline
from tasks t
join groups g on g.id = t.group_id
where g.project_id = $1
  and t.status in ('NOT_STARTED', 'IN_PROGRESS')
  and t.assignee_id = any($2)
order by t.assignee_id, t.id;
`
	rows, err := r.pool.Query(ctx, q, projectID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query active tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.ActiveTask{}
	for rows.Next() {
		var t domain.ActiveTask
		if err := rows.Scan(&t.TaskID, &t.AssigneeID, &t.Difficulty, &t.Deadline); err != nil {
			return nil, fmt.Errorf("scan active task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func collectMembers(rows pgx.Rows) ([]domain.Member, error) {
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.FullName, &m.Email, &m.GroupID, &m.GroupName); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
