package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"name constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_name_key"}, ErrDuplicateName},
		{"email constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, ErrDuplicateEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapUniqueViolation(tc.err)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMapUniqueViolation_PassthroughOtherErrors(t *testing.T) {
	plain := errors.New("connection refused")
	if got := mapUniqueViolation(plain); got != plain {
		t.Fatalf("non-pg error should pass through, got %v", got)
	}

	otherPg := &pgconn.PgError{Code: "23503", ConstraintName: "users_name_key"}
	if got := mapUniqueViolation(otherPg); !errors.Is(got, otherPg) {
		t.Fatalf("non-unique pg error should pass through, got %v", got)
	}

	unknownConstraint := &pgconn.PgError{Code: "23505", ConstraintName: "other_key"}
	if got := mapUniqueViolation(unknownConstraint); !errors.Is(got, unknownConstraint) {
		t.Fatalf("unknown constraint should pass through, got %v", got)
	}
}
