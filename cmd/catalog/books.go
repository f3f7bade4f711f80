package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

type bookFlags struct {
	title       string
	author      string
	category    string
	quantity    int
	publisher   string
	description string
	price       string
	location    string
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "title")
	cmd.Flags().StringVar(&f.author, "author", "", "author")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().IntVar(&f.quantity, "quantity", 0, "copies on the shelf")
	cmd.Flags().StringVar(&f.publisher, "publisher", "", "publisher")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
	cmd.Flags().StringVar(&f.price, "price", "", "price, e.g. 24.99")
	cmd.Flags().StringVar(&f.location, "location", "", "shelf location")
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, models.NewValidationError("price", models.RuleFormat, "price must be a decimal number")
	}
	return price, nil
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage catalog titles",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookUpdateCmd(a),
		newBookRemoveCmd(a),
		newBookGetCmd(a),
		newBookListCmd(a),
		newBookSearchCmd(a),
		newBookCopiesCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "add <code>",
		Short: "Add a new title",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := parsePrice(f.price)
			if err != nil {
				return err
			}
			book, err := a.books.CreateBook(cmd.Context(), models.CreateBookRequest{
				Code:        args[0],
				Title:       f.title,
				Author:      f.author,
				Category:    f.category,
				Quantity:    f.quantity,
				Publisher:   f.publisher,
				Description: f.description,
				Price:       price,
				Location:    f.location,
			})
			if err != nil {
				return err
			}
			return a.print(book, func() {
				fmt.Fprintf(a.out, "Added %s (%s), %d copies\n", book.Title, book.Code, book.Quantity)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var (
		f        bookFlags
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "update <code>",
		Short: "Change a title's details; unset flags keep their values",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.books.GetBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			req := models.UpdateRequestFrom(*current)
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = f.title
			}
			if flags.Changed("author") {
				req.Author = f.author
			}
			if flags.Changed("category") {
				req.Category = f.category
			}
			if flags.Changed("quantity") {
				req.Quantity = f.quantity
			}
			if flags.Changed("publisher") {
				req.Publisher = f.publisher
			}
			if flags.Changed("description") {
				req.Description = f.description
			}
			if flags.Changed("location") {
				req.Location = f.location
			}
			if flags.Changed("price") {
				if req.Price, err = parsePrice(f.price); err != nil {
					return err
				}
			}
			if flags.Changed("inactive") {
				req.IsActive = !inactive
			}

			book, err := a.books.UpdateBook(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(book, func() { a.printBook(book) })
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&inactive, "inactive", false, "withdraw the title from circulation (--inactive=false restores it)")
	return cmd
}

func newBookRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <code>",
		Short: "Remove a title with no copies on loan",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.books.DeleteBook(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s\n", models.NormalizeCode(args[0]))
			return nil
		},
	}
}

func newBookGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show one title",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.books.GetBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(book, func() { a.printBook(book) })
		},
	}
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every title by code",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.books.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(books, func() { a.printBooks(books) })
		},
	}
}

func newBookSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find titles by title, author, category or code",
		Args:  exactArgs(1, "query"),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.books.SearchBooks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(books, func() { a.printBooks(books) })
		},
	}
}

func newBookCopiesCmd(a *app) *cobra.Command {
	var add, remove int
	cmd := &cobra.Command{
		Use:   "copies <code>",
		Short: "Add or remove shelf copies",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (add == 0) == (remove == 0) {
				return models.NewValidationError("copies", models.RuleRequired, "give exactly one of --add or --remove")
			}

			var (
				book *models.Book
				err  error
			)
			if add != 0 {
				book, err = a.books.AddCopies(cmd.Context(), args[0], add)
			} else {
				book, err = a.books.RemoveCopies(cmd.Context(), args[0], remove)
			}
			if err != nil {
				return err
			}
			return a.print(book, func() {
				fmt.Fprintf(a.out, "%s now has %d of %d copies on the shelf\n", book.Code, book.Quantity, book.TotalCopies)
			})
		},
	}
	cmd.Flags().IntVar(&add, "add", 0, "copies to add")
	cmd.Flags().IntVar(&remove, "remove", 0, "copies to remove")
	return cmd
}
