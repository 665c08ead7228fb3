package tmdb

// SearchMoviesResponse is the TMDB /search/movie response.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is one movie entry in a TMDB search response.
type MovieResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	ReleaseDate      string  `json:"release_date"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
	Adult            bool    `json:"adult"`
}

// SearchTVResponse is the TMDB /search/tv response.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalResults int        `json:"total_results"`
}

// TVResult is one series entry in a TMDB search response.
type TVResult struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	OriginalName     string   `json:"original_name"`
	FirstAirDate     string   `json:"first_air_date"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path"`
	VoteAverage      float64  `json:"vote_average"`
	VoteCount        int      `json:"vote_count"`
	Popularity       float64  `json:"popularity"`
	GenreIDs         []int    `json:"genre_ids"`
	OriginalLanguage string   `json:"original_language"`
	OriginCountry    []string `json:"origin_country"`
}

// SearchMultiResponse is the TMDB /search/multi response.
type SearchMultiResponse struct {
	Page         int           `json:"page"`
	Results      []MultiResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// MultiResult is one mixed-media entry; MediaType discriminates the fields.
type MultiResult struct {
	ID               int      `json:"id"`
	MediaType        string   `json:"media_type"` // "movie", "tv" or "person"
	Title            string   `json:"title"`      // movies
	Name             string   `json:"name"`       // tv
	ReleaseDate      string   `json:"release_date"`
	FirstAirDate     string   `json:"first_air_date"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path"`
	VoteAverage      float64  `json:"vote_average"`
	Popularity       float64  `json:"popularity"`
	GenreIDs         []int    `json:"genre_ids"`
	OriginalLanguage string   `json:"original_language"`
	OriginCountry    []string `json:"origin_country"`
	Adult            bool     `json:"adult"`
}

// Payload tags a decoded TMDB response with the endpoint that produced it so
// Normalize can dispatch without re-inspecting the wire shape.
type Payload struct {
	Endpoint string
	Movies   *SearchMoviesResponse
	TV       *SearchTVResponse
	Multi    *SearchMultiResponse
}

// genreNames maps common TMDB genre IDs to names. Search responses only
// carry IDs; this covers the genres scoring cares about (notably Animation
// for the anime heuristic).
var genreNames = map[int]string{
	16:    "Animation",
	28:    "Action",
	12:    "Adventure",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	27:    "Horror",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Science Fiction",
	53:    "Thriller",
	10759: "Action & Adventure",
	10765: "Sci-Fi & Fantasy",
	10762: "Kids",
	10764: "Reality",
}

func genresFromIDs(ids []int) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := genreNames[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

const animationGenreID = 16
