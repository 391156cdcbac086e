package shared

// SeedISBNs is the default import set used when IMPORT_ISBNS_FILE is not set.
// A mix of novels and comics/graphic novels known to resolve on Open Library.
var SeedISBNs = []string{
	"9780140328721", // Fantastic Mr Fox
	"9780451524935", // 1984
	"9780618260300", // The Hobbit
	"9780061120084", // To Kill a Mockingbird
	"9780743273565", // The Great Gatsby
	"9780547928227", // The Fellowship of the Ring
	"9780441172719", // Dune
	"9780345391803", // The Hitchhiker's Guide to the Galaxy
	"9780062073488", // Murder on the Orient Express
	"9780316769488", // The Catcher in the Rye
	"9781401232597", // Watchmen
	"9781563899805", // V for Vendetta
	"9780930289232", // The Dark Knight Returns
	"9781401294052", // Sandman Vol. 1
	"9780785190219", // Civil War
	"9781632150981", // Saga Vol. 1
	"9781607066019", // The Walking Dead Compendium
	"9782505002376", // Largo Winch
	"9780394747231", // Maus
	"9781779501127", // Batman: Year One
}
