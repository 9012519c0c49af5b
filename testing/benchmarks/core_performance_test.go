package benchmarks

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/tofu"
	"github.com/zoobzio/tofu/criteria"
	tofutest "github.com/zoobzio/tofu/testing"
	_ "modernc.org/sqlite"
)

// User is a test model for benchmarks.
type User struct {
	ID      int      `db:"id" constraints:"primarykey"`
	Email   string   `db:"email" constraints:"notnull,unique"`
	Name    string   `db:"name"`
	Age     *int     `db:"age"`
	Team    *Team    `db:"-" ref:"team_id"`
	TeamID  int      `db:"team_id"`
	Devices []Device `db:"-" ref:"user_id"`
}

// Team is the to-one side of User.
type Team struct {
	ID   int    `db:"id" constraints:"primarykey"`
	Name string `db:"name"`
}

// Device is the to-many side of User.
type Device struct {
	ID     int    `db:"id" constraints:"primarykey"`
	UserID int    `db:"user_id"`
	Kind   string `db:"kind"`
}

var (
	userEmail   = tofu.Prop(func(u *User) *string { return &u.Email })
	userAge     = tofu.Prop(func(u *User) **int { return &u.Age })
	userName    = tofu.Prop(func(u *User) *string { return &u.Name })
	userTeam    = tofu.ToOne(func(u *User) **Team { return &u.Team })
	userDevices = tofu.ToMany(func(u *User) *[]Device { return &u.Devices })
	teamName    = tofu.Prop(func(t *Team) *string { return &t.Name })
	deviceKind  = tofu.Prop(func(d *Device) *string { return &d.Kind })
)

func sqliteSession(b *testing.B) *criteria.Session {
	b.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { db.Close() })

	s, err := criteria.NewSession(db)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

// BenchmarkPropertyResolution measures resolving a property from its accessor.
func BenchmarkPropertyResolution(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := tofu.ResolveProp(func(u *User) *string { return &u.Email })
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRootQueryBuilding measures building a restricted, ordered root query.
func BenchmarkRootQueryBuilding(b *testing.B) {
	ctx := context.Background()

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		s := tofutest.SessionFor(tofutest.NewFakeCriteria())
		q := tofu.GetAll[User](ctx, s).
			OrderBy(userName).Ascending().
			MaxResults(50).
			Where(userEmail.Like("%@example.com"))
		if q.Err() != nil {
			b.Fatal(q.Err())
		}
	}
}

// BenchmarkNestedScopeBuilding measures building a query with two child scopes.
func BenchmarkNestedScopeBuilding(b *testing.B) {
	ctx := context.Background()

	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		s := tofutest.SessionFor(tofutest.NewFakeCriteria())
		q := tofu.HasChildren(
			tofu.HasChild(tofu.GetCount[User](ctx, s).Where(userAge.IsNotNull()).Nav(), userTeam).
				Where(teamName.Eq("core")).
				EndChild().
				Nav(),
			userDevices,
		).
			Where(deviceKind.In("phone", "tablet")).
			EndChild()
		if q.Err() != nil {
			b.Fatal(q.Err())
		}
	}
}

// BenchmarkListExecution measures executing a list query against an in-memory fake.
func BenchmarkListExecution(b *testing.B) {
	ctx := context.Background()
	rows := make([]User, 100)
	for i := range rows {
		rows[i] = User{ID: i + 1}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		s := tofutest.SessionFor(tofutest.NewFakeCriteria(tofutest.WithRows(rows)))
		users, err := tofu.GetAll[User](ctx, s).FirstResult(10).MaxResults(20).Execute(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if len(users) != 20 {
			b.Fatalf("expected 20 users, got %d", len(users))
		}
	}
}

// BenchmarkRender measures SQL rendering of a criteria tree with joins.
func BenchmarkRender(b *testing.B) {
	s := sqliteSession(b)
	root, err := criteria.For[User](s)
	if err != nil {
		b.Fatal(err)
	}
	if err := root.Add(userEmail.Like("%@example.com").Predicate); err != nil {
		b.Fatal(err)
	}
	team, err := root.CreateCriteria("Team")
	if err != nil {
		b.Fatal(err)
	}
	if err := team.Add(teamName.Eq("core").Predicate); err != nil {
		b.Fatal(err)
	}
	if err := root.AddOrder(tofu.Desc("Name")); err != nil {
		b.Fatal(err)
	}
	root.SetMaxResults(25)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		sql, _, err := root.Render()
		if err != nil {
			b.Fatal(err)
		}
		_ = sql
	}
}

// BenchmarkSpecJSON measures serializing a criteria tree description.
func BenchmarkSpecJSON(b *testing.B) {
	s := sqliteSession(b)
	root, err := criteria.For[User](s)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := root.CreateCriteria("Devices"); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := root.SpecJSON(); err != nil {
			b.Fatal(err)
		}
	}
}
