package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func newItemCmd() *cobra.Command {
	itemCmd := &cobra.Command{
		Use:   "item",
		Short: "Manage review items",
	}
	itemCmd.AddCommand(newItemAddCmd(), newItemListCmd())
	return itemCmd
}

func newItemAddCmd() *cobra.Command {
	var (
		owner, typ, topic, question, answer, explanation string
		choices, keywords                                []string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a review item and enroll its owner",
		Long: "Create a review item and start the owner's review of it at GATE_1.\n" +
			"The meaning of --answer depends on --type:\n" +
			"  SINGLE_CHOICE  zero-based index of the correct --choice\n" +
			"  TRUE_FALSE     true or false\n" +
			"  SHORT_TEXT     the expected answer\n" +
			"  FREE_TEXT      a model answer; add --keyword for required concepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := item.ParseType(typ)
			if err != nil {
				return fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
			}
			key, err := parseAnswerKey(t, answer, keywords)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, owner)
			if err != nil {
				return err
			}
			it := &item.Item{
				OwnerID:     l.ID,
				Type:        t,
				Topic:       topic,
				Question:    question,
				Choices:     choices,
				Key:         key,
				Explanation: explanation,
			}
			st, err := e.svc.CreateItem(ctx, it)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created item %d (%s)\n", it.ID, t)
			if st != nil {
				fmt.Fprintf(out, "Enrolled for review: %s\n", describeState(*st))
			}
			return nil
		},
	}

	f := addCmd.Flags()
	f.StringVar(&owner, "owner", "", "Owning learner (ID or name)")
	f.StringVarP(&typ, "type", "t", "", "SINGLE_CHOICE, TRUE_FALSE, SHORT_TEXT or FREE_TEXT")
	f.StringVar(&topic, "topic", "", "Topic label")
	f.StringVarP(&question, "question", "q", "", "Question text")
	f.StringArrayVarP(&choices, "choice", "c", nil, "Choice text (repeat for each choice)")
	f.StringVarP(&answer, "answer", "a", "", "Answer key (see above)")
	f.StringArrayVarP(&keywords, "keyword", "k", nil, "Required keyword for FREE_TEXT (repeatable)")
	f.StringVarP(&explanation, "explanation", "e", "", "Explanation shown after answering")
	_ = addCmd.MarkFlagRequired("owner")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("question")
	return addCmd
}

func parseAnswerKey(t item.Type, answer string, keywords []string) (item.AnswerKey, error) {
	switch t {
	case item.SingleChoice:
		i, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			return item.AnswerKey{}, fmt.Errorf("%w: --answer must be a choice index", review.ErrInvalidInput)
		}
		return item.AnswerKey{CorrectIndex: i}, nil
	case item.TrueFalse:
		b, err := strconv.ParseBool(strings.TrimSpace(answer))
		if err != nil {
			return item.AnswerKey{}, fmt.Errorf("%w: --answer must be true or false", review.ErrInvalidInput)
		}
		return item.AnswerKey{Truth: b}, nil
	case item.ShortText:
		return item.AnswerKey{Expected: answer}, nil
	}
	return item.AnswerKey{ModelAnswer: answer, Keywords: keywords}, nil
}

func newItemListCmd() *cobra.Command {
	var owner string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List items owned by a learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			l, err := e.resolveLearner(ctx, owner)
			if err != nil {
				return err
			}
			items, err := e.repo.ListItemsByOwner(ctx, l.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items found.")
				return nil
			}
			fmt.Fprintf(out, "%-5s  %-13s  %-16s  %s\n", "ID", "Type", "Topic", "Question")
			fmt.Fprintln(out, strings.Repeat("─", 80))
			for _, it := range items {
				fmt.Fprintf(out, "%-5d  %-13s  %-16s  %s\n", it.ID, it.Type, truncate(it.Topic, 16), truncate(it.Question, 40))
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&owner, "owner", "", "Owning learner (ID or name)")
	_ = listCmd.MarkFlagRequired("owner")
	return listCmd
}
