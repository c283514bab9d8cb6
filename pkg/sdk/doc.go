// Package talentsearch is a Go client for the talentsearch candidate search API.
//
// Credentials are one-time: every request asks the CredentialSource for a fresh one.
//
//	client, _ := talentsearch.New("https://talents.internal",
//	    talentsearch.WithCredentialSource(func(ctx context.Context) (string, error) {
//	        return totpCode(time.Now())
//	    }),
//	)
//	page, _ := client.Search().
//	    Where("skills", "go", "rust").
//	    Range("yearsExperience", "3", "").
//	    Scoped("a").Where("experience.company", "acme").Done().
//	    Sort(talentsearch.SortRecency).
//	    PageSize(20).
//	    Do(ctx)
//
// Pages are walked with the cursor returned by the server:
//
//	err := client.Search().Where("skills", "go").Pages(ctx, func(p *talentsearch.Page) error {
//	    people, err := talentsearch.Decode[Person](p)
//	    ...
//	})
package talentsearch
