package cli

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/kindstore/pkg/kindstore"
	"github.com/mesh-intelligence/kindstore/pkg/types"
)

func (a *app) newCreateCmd() *cobra.Command {
	var genUUID bool
	cmd := &cobra.Command{
		Use:   "create <kind> [name=value...]",
		Short: "Create an entity",
		Long: `Create stores a new entity of the given kind. JSON fields take a JSON
document and blob fields take base64. _id sets the identity of kinds
declared with a custom identity.

Example:
  kindstore create WebAppRating --gen-uuid app_name=foo 'rating={"stars":5}'
  kindstore create Account _id=alice email=a@example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(args[0], func(kind *types.Kind) error {
				values, id, err := parseAssignments(kind, args[1:])
				if err != nil {
					return err
				}
				if genUUID {
					id = fillUUIDs(kind, values, id)
				}
				e, err := kind.New(values)
				if err != nil {
					return err
				}
				if id != nil {
					if err := e.SetID(id); err != nil {
						return err
					}
				}
				if err := kindstore.Entities(kind).Save(e); err != nil {
					return err
				}
				log.WithFields(log.Fields{"kind": kind.Name(), "id": e.ID()}).Debug("created entity")
				return a.writeOne(cmd, e)
			})
		},
	}
	cmd.Flags().BoolVar(&genUUID, "gen-uuid", false, "generate values for unset uuid fields and a uuid identity")
	return cmd
}

// fillUUIDs assigns random UUIDs to every uuid field without a value and
// returns id, generated when the kind has a uuid identity and none was given.
func fillUUIDs(kind *types.Kind, values types.Fields, id any) any {
	for _, f := range kind.Fields() {
		if f.Type() != types.TypeUUID {
			continue
		}
		if _, ok := values[f.Name()]; !ok {
			values[f.Name()] = uuid.NewString()
		}
	}
	if ident := kind.Identity(); ident != nil && ident.Type() == types.TypeUUID && id == nil {
		return uuid.NewString()
	}
	return id
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> name=value [name=value...]",
		Short: "Fetch the single entity matching field values",
		Long: `Get prints the one entity whose fields equal every given value. It
fails when nothing matches or when more than one entity does.

Example:
  kindstore get WebAppRating app_name=foo
  kindstore get WebAppRating _id=3`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(args[0], func(kind *types.Kind) error {
				eq, err := equalities(kind, args[1:])
				if err != nil {
					return err
				}
				e, err := kindstore.Entities(kind).Get(eq)
				if err != nil {
					return err
				}
				return a.writeOne(cmd, e)
			})
		},
	}
}

// equalities reads name=value arguments, the identity included, as a
// field-equality map.
func equalities(kind *types.Kind, args []string) (types.Fields, error) {
	values, id, err := parseAssignments(kind, args)
	if err != nil {
		return nil, err
	}
	if id != nil {
		values[types.IdentityName] = id
	}
	return values, nil
}

func (a *app) newExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <kind> [filter...]",
		Short: "Report whether any entity matches the filters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(args[0], func(kind *types.Kind) error {
				q, err := filtered(kind, args[1:])
				if err != nil {
					return err
				}
				found, err := q.Exists()
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]bool{"exists": found})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), found)
				return err
			})
		},
	}
}

// filtered builds a query over kind from filter expressions.
func filtered(kind *types.Kind, exprs []string) (*kindstore.Query, error) {
	filters, err := parseFilters(kind, exprs)
	if err != nil {
		return nil, err
	}
	return kindstore.Entities(kind).Query(filters, nil, nil, nil), nil
}

func (a *app) newQueryCmd() *cobra.Command {
	var (
		orderBy []string
		offset  int
		limit   int
		count   bool
	)
	cmd := &cobra.Command{
		Use:   "query <kind> [filter...]",
		Short: "List entities matching filters",
		Long: `Query prints every entity of the kind matching all filters. Filters are
name<op>value with op one of =, ==, !=, <, <=, >, >=.

Example:
  kindstore query WebAppRating
  kindstore query WebAppRating 'app_name>=m' --order-by -app_name --limit 10
  kindstore query WebAppRating --count`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withKind(args[0], func(kind *types.Kind) error {
				q, err := filtered(kind, args[1:])
				if err != nil {
					return err
				}
				q = q.OrderBy(orderBy...)
				if cmd.Flags().Changed("offset") {
					q = q.Offset(offset)
				}
				if cmd.Flags().Changed("limit") {
					q = q.Limit(limit)
				}
				if count {
					n, err := q.Count()
					if err != nil {
						return err
					}
					if a.flags.jsonMode {
						return writeJSON(cmd.OutOrStdout(), map[string]int{"count": n})
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
					return err
				}
				entities, err := q.Collect()
				if err != nil {
					return err
				}
				return writeEntities(cmd.OutOrStdout(), a.flags.jsonMode, entities)
			})
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&orderBy, "order-by", nil, "sort fields, prefix with - for descending")
	f.IntVar(&offset, "offset", 0, "skip this many results")
	f.IntVar(&limit, "limit", 0, "return at most this many results")
	f.BoolVar(&count, "count", false, "print the number of matches instead of the entities")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <kind> [filter...]",
		Short: "Delete entities matching filters",
		Long: `Delete removes every entity of the kind matching all filters and prints
how many were removed. Deleting without filters requires --all.

Example:
  kindstore delete WebAppRating app_name=foo
  kindstore delete WebAppRating --all`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && !all {
				return fmt.Errorf("%w: delete without filters requires --all", errUsage)
			}
			return a.withKind(args[0], func(kind *types.Kind) error {
				q, err := filtered(kind, args[1:])
				if err != nil {
					return err
				}
				n, err := q.Delete()
				if err != nil {
					return err
				}
				log.WithFields(log.Fields{"kind": kind.Name(), "deleted": n}).Debug("deleted entities")
				if a.flags.jsonMode {
					return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": n})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "allow deleting every entity of the kind")
	return cmd
}

func (a *app) writeOne(cmd *cobra.Command, e *types.Entity) error {
	if a.flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), entityMap(e))
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), entityLine(e))
	return err
}
