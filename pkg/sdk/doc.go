// Package contextq answers questions from a vector index, scoped to the
// asking user's role and account.
//
// Each question is embedded, the nearest chunks are retrieved and narrowed to
// the caller's role or account, and a prompt is layered from per-account,
// per-role and per-user policy templates before it reaches the language model.
// The answer comes back with the ids of the chunks it was built from and a
// flag for lines that do not appear in those chunks.
//
//	client, _ := contextq.New(ctx,
//	    contextq.WithChromem("chroma", "knowledge-base", embedder),
//	    contextq.WithGenerator(llm),
//	    contextq.WithTemplates("Prompt_Templates"),
//	)
//	defer client.Close()
//
//	ans, _ := client.Ask(ctx, contextq.Question{
//	    Text: "How do I undo a commit?", Role: "dev", User: "u1", Account: "acme",
//	})
//	fmt.Println(ans.Format())
package contextq
